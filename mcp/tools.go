package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/lvillar/pdfcompose/internal/pagespec"
	"github.com/lvillar/pdfcompose/pageops"
	"github.com/lvillar/pdfcompose/pagerange"
)

var errShelfEmpty = errors.New("the shelf is empty: run a tool without an output path first")

func (s *Server) registerTools() {
	s.addTool(mergePDFsTool(), s.handleMerge)
	s.addTool(splitPDFTool(), s.handleSplit)
	s.addTool(extractPagesTool(), s.handleExtract)
	s.addTool(rotatePagesTool(), s.handleRotate)
	s.addTool(composePagesTool(), s.handleCompose)
	s.addTool(watermarkPDFTool(), s.handleWatermark)
	s.addTool(pdfInfoTool(), s.handleInfo)
	s.addTool(protectPDFTool(), s.handleProtect)
}

const (
	inputDescription  = `Path to the PDF file, or "shelf:" for the previous tool's output`
	outputDescription = `Optional file path to save the result. If omitted, the result is kept on the shelf for the next tool ("shelf:").`
)

func mergePDFsTool() mcplib.Tool {
	return mcplib.NewTool("merge_pdfs",
		mcplib.WithDescription("Merge two or more PDF files into one, keeping every page in input order."),
		mcplib.WithArray("inputs",
			mcplib.Required(),
			mcplib.Description(`Paths of the PDF files to merge, in order. "shelf:" may be used for the previous tool's output.`),
			mcplib.WithStringItems(),
		),
		mcplib.WithString("output", mcplib.Description(outputDescription)),
		mcplib.WithDestructiveHintAnnotation(false),
		mcplib.WithOpenWorldHintAnnotation(false),
	)
}

func (s *Server) handleMerge(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	args := arguments(req)
	paths := stringsArg(args, "inputs")
	if len(paths) == 0 {
		return nil, fmt.Errorf("missing 'inputs' argument")
	}

	ins, restore, err := s.readInputs(paths)
	if err != nil {
		return nil, err
	}
	f, err := s.dispatch.Merge(ins, s.progressFunc(ctx, req))
	if err != nil {
		restore()
		return nil, err
	}
	return s.deliver(f, stringArg(args, "output"), fmt.Sprintf("Merged %d files", len(ins)))
}

func splitPDFTool() mcplib.Tool {
	return mcplib.NewTool("split_pdf",
		mcplib.WithDescription("Split a PDF into several files, one per page range."),
		mcplib.WithString("input", mcplib.Required(), mcplib.Description(inputDescription)),
		mcplib.WithString("ranges",
			mcplib.Required(),
			mcplib.Description(`Comma-separated 1-based page ranges, one output file each, e.g. "1-3,4-6,7"`),
		),
		mcplib.WithString("outputDir", mcplib.Description("Directory to write the parts to (default: the server's output directory)")),
		mcplib.WithDestructiveHintAnnotation(false),
		mcplib.WithOpenWorldHintAnnotation(false),
	)
}

func (s *Server) handleSplit(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	args := arguments(req)
	in, restore, err := s.readInput(args)
	if err != nil {
		return nil, err
	}
	total, err := s.pageCount(in)
	if err != nil {
		restore()
		return nil, err
	}

	ranges := pagerange.ParseRanges(stringArg(args, "ranges"), total)
	files, err := s.dispatch.Split(in, ranges, s.progressFunc(ctx, req))
	if err != nil {
		restore()
		return nil, err
	}

	dir := stringArg(args, "outputDir")
	if dir == "" {
		dir = s.outputDir
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Split %s into %d files:\n", in.Name, len(files))
	// A split is written whole or not at all.
	written := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(dir, f.Name)
		if err := os.WriteFile(path, f.Data, 0o644); err != nil {
			for _, p := range written {
				if rmErr := os.Remove(p); rmErr != nil {
					s.log.WithError(rmErr).WithField("file", p).Warn("removing partial split output")
				}
			}
			restore()
			return nil, fmt.Errorf("writing file: %w", err)
		}
		written = append(written, path)
		fmt.Fprintf(&b, "  %s (%d bytes)\n", path, f.ByteLength())
	}
	return mcplib.NewToolResultText(b.String()), nil
}

func extractPagesTool() mcplib.Tool {
	return mcplib.NewTool("extract_pages",
		mcplib.WithDescription("Copy selected pages of a PDF into a new PDF. Pages are sorted and deduplicated."),
		mcplib.WithString("input", mcplib.Required(), mcplib.Description(inputDescription)),
		mcplib.WithString("pages",
			mcplib.Required(),
			mcplib.Description(`1-based pages and ranges, e.g. "1,3,5-7"`),
		),
		mcplib.WithString("output", mcplib.Description(outputDescription)),
		mcplib.WithDestructiveHintAnnotation(false),
		mcplib.WithOpenWorldHintAnnotation(false),
	)
}

func (s *Server) handleExtract(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	args := arguments(req)
	in, restore, err := s.readInput(args)
	if err != nil {
		return nil, err
	}
	total, err := s.pageCount(in)
	if err != nil {
		restore()
		return nil, err
	}

	pages := pagerange.ParsePageList(stringArg(args, "pages"), total)
	f, err := s.dispatch.Extract(in, pages, s.progressFunc(ctx, req))
	if err != nil {
		restore()
		return nil, err
	}
	return s.deliver(f, stringArg(args, "output"), fmt.Sprintf("Extracted %d pages from %s", len(pages), in.Name))
}

func rotatePagesTool() mcplib.Tool {
	return mcplib.NewTool("rotate_pages",
		mcplib.WithDescription("Set the rotation of individual pages. Other pages keep their rotation."),
		mcplib.WithString("input", mcplib.Required(), mcplib.Description(inputDescription)),
		mcplib.WithString("rotations",
			mcplib.Required(),
			mcplib.Description(`Comma-separated page:degrees pairs with 1-based pages, e.g. "1:90,3:0". Degrees must be a multiple of 90; 0 resets a page to upright.`),
		),
		mcplib.WithString("output", mcplib.Description(outputDescription)),
		mcplib.WithDestructiveHintAnnotation(false),
		mcplib.WithOpenWorldHintAnnotation(false),
	)
}

func (s *Server) handleRotate(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	args := arguments(req)
	rotations, err := pagespec.ParseRotations(stringArg(args, "rotations"))
	if err != nil {
		return nil, err
	}
	in, restore, err := s.readInput(args)
	if err != nil {
		return nil, err
	}
	f, err := s.dispatch.Rotate(in, rotations, s.progressFunc(ctx, req))
	if err != nil {
		restore()
		return nil, err
	}
	return s.deliver(f, stringArg(args, "output"), fmt.Sprintf("Rotated %d pages of %s", len(rotations), in.Name))
}

func composePagesTool() mcplib.Tool {
	return mcplib.NewTool("compose_pages",
		mcplib.WithDescription("Build a new PDF from individual pages of one or more PDFs, in any order, optionally rotating each page."),
		mcplib.WithArray("pages",
			mcplib.Required(),
			mcplib.Description(`Pages in output order as "path:page" or "path:page:degrees" with 1-based pages, e.g. ["a.pdf:2", "b.pdf:1:90", "shelf::3"]`),
			mcplib.WithStringItems(),
		),
		mcplib.WithString("output", mcplib.Description(outputDescription)),
		mcplib.WithDestructiveHintAnnotation(false),
		mcplib.WithOpenWorldHintAnnotation(false),
	)
}

func (s *Server) handleCompose(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	args := arguments(req)
	specs := stringsArg(args, "pages")
	if len(specs) == 0 {
		return nil, fmt.Errorf("missing 'pages' argument")
	}

	refs := make([]pagespec.Ref, len(specs))
	paths := make([]string, len(specs))
	for i, text := range specs {
		ref, err := pagespec.ParseRef(text)
		if err != nil {
			return nil, err
		}
		refs[i] = ref
		paths[i] = ref.Source
	}

	ins, restore, err := s.readInputs(paths)
	if err != nil {
		return nil, err
	}
	pages := make([]pageops.PageRef, len(refs))
	for i, ref := range refs {
		pages[i] = pageops.PageRef{Source: ins[i], Index: ref.Index, Rotation: ref.Rotation}
	}

	f, err := s.dispatch.Compose(pages, s.progressFunc(ctx, req))
	if err != nil {
		restore()
		return nil, err
	}
	return s.deliver(f, stringArg(args, "output"), fmt.Sprintf("Composed %d pages", len(pages)))
}

func watermarkPDFTool() mcplib.Tool {
	return mcplib.NewTool("watermark_pdf",
		mcplib.WithDescription("Stamp a diagonal text watermark on a PDF."),
		mcplib.WithString("input", mcplib.Required(), mcplib.Description(inputDescription)),
		mcplib.WithString("text", mcplib.Required(), mcplib.Description("Watermark text (e.g. CONFIDENTIAL, DRAFT)")),
		mcplib.WithNumber("fontSize", mcplib.Description("Font size in points (default: 60)")),
		mcplib.WithNumber("opacity", mcplib.Description("Opacity from 0.0 to 1.0 (default: 0.3)")),
		mcplib.WithNumber("angle", mcplib.Description("Rotation angle in degrees (default: 45)")),
		mcplib.WithString("pages", mcplib.Description(`1-based pages to stamp, e.g. "1,3-5" (default: all)`)),
		mcplib.WithString("output", mcplib.Description(outputDescription)),
		mcplib.WithDestructiveHintAnnotation(false),
		mcplib.WithOpenWorldHintAnnotation(false),
	)
}

func (s *Server) handleWatermark(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	args := arguments(req)
	text := stringArg(args, "text")
	if text == "" {
		return nil, fmt.Errorf("missing 'text' argument")
	}
	in, restore, err := s.readInput(args)
	if err != nil {
		return nil, err
	}

	op := pageops.WatermarkOp{
		Input: in,
		Text:  text,
		Style: pageops.TextWatermark{
			FontSize: numberArg(args, "fontSize"),
			Opacity:  numberArg(args, "opacity"),
			Angle:    numberArg(args, "angle"),
		},
	}
	if sel := stringArg(args, "pages"); sel != "" {
		total, err := s.pageCount(in)
		if err != nil {
			restore()
			return nil, err
		}
		op.Pages = pagerange.ParsePageList(sel, total)
		if len(op.Pages) == 0 {
			restore()
			return nil, fmt.Errorf("no valid pages in %q (PDF has %d pages)", sel, total)
		}
	}

	res, err := s.dispatch.Run(op, s.progressFunc(ctx, req))
	if err != nil {
		restore()
		return nil, err
	}
	return s.deliver(res.File(), stringArg(args, "output"), fmt.Sprintf("Watermarked %s", in.Name))
}

func pdfInfoTool() mcplib.Tool {
	return mcplib.NewTool("pdf_info",
		mcplib.WithDescription("Report the page count and the size and rotation of every page of a PDF."),
		mcplib.WithString("input", mcplib.Required(), mcplib.Description(inputDescription)),
		mcplib.WithReadOnlyHintAnnotation(true),
		mcplib.WithOpenWorldHintAnnotation(false),
	)
}

func (s *Server) handleInfo(_ context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	args := arguments(req)
	in, restore, err := s.readInput(args)
	if err != nil {
		return nil, err
	}
	// Looking at the shelf does not consume it.
	defer restore()

	info, err := s.dispatch.Inspect(in)
	if err != nil {
		return nil, err
	}
	out, _ := json.MarshalIndent(info, "", "  ")
	return mcplib.NewToolResultText(string(out)), nil
}

func protectPDFTool() mcplib.Tool {
	return mcplib.NewTool("protect_pdf",
		mcplib.WithDescription("Password-protect a PDF. Not supported: always fails without writing anything."),
		mcplib.WithString("input", mcplib.Required(), mcplib.Description(inputDescription)),
		mcplib.WithString("password", mcplib.Required(), mcplib.Description("Password to require")),
		mcplib.WithOpenWorldHintAnnotation(false),
	)
}

func (s *Server) handleProtect(_ context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	args := arguments(req)
	in, restore, err := s.readInput(args)
	if err != nil {
		return nil, err
	}
	defer restore()

	_, err = s.dispatch.Run(pageops.ProtectOp{Input: in, Password: stringArg(args, "password")}, nil)
	return nil, err
}

// readInput resolves the "input" argument.
func (s *Server) readInput(args map[string]any) (pageops.Input, func(), error) {
	path := stringArg(args, "input")
	if path == "" {
		return pageops.Input{}, nil, fmt.Errorf("missing 'input' argument")
	}
	ins, restore, err := s.readInputs([]string{path})
	if err != nil {
		return pageops.Input{}, nil, err
	}
	return ins[0], restore, nil
}

// readInputs reads paths in order. A path given more than once is read
// once and shares its buffer. The shelf is taken at most once; restore
// puts it back if nothing has replaced it.
func (s *Server) readInputs(paths []string) ([]pageops.Input, func(), error) {
	var taken *pageops.File
	restore := func() {
		if taken != nil && !s.shelf.Pending() {
			s.shelf.Put(*taken)
		}
	}

	seen := make(map[string]pageops.Input)
	ins := make([]pageops.Input, 0, len(paths))
	for _, p := range paths {
		if in, ok := seen[p]; ok {
			ins = append(ins, in)
			continue
		}

		var in pageops.Input
		if p == ShelfInput {
			f, ok := s.shelf.Take()
			if !ok {
				return nil, nil, errShelfEmpty
			}
			taken = &f
			in = pageops.Input{Name: f.Name, Data: f.Data}
		} else {
			data, err := os.ReadFile(p)
			if err != nil {
				restore()
				return nil, nil, fmt.Errorf("reading %s: %w", p, err)
			}
			in = pageops.Input{Name: filepath.Base(p), Data: data}
		}
		seen[p] = in
		ins = append(ins, in)
	}
	return ins, restore, nil
}

func (s *Server) pageCount(in pageops.Input) (int, error) {
	info, err := s.dispatch.Inspect(in)
	if err != nil {
		return 0, err
	}
	return info.PageCount, nil
}

// deliver writes f to output, or puts it on the shelf when output is empty.
func (s *Server) deliver(f pageops.File, output, summary string) (*mcplib.CallToolResult, error) {
	if output == "" {
		s.shelf.Put(f)
		return mcplib.NewToolResultText(fmt.Sprintf("%s: %s (%d bytes) is on the shelf. Use %q as an input to continue with it.",
			summary, f.Name, f.ByteLength(), ShelfInput)), nil
	}
	if err := os.WriteFile(output, f.Data, 0o644); err != nil {
		return nil, fmt.Errorf("writing file: %w", err)
	}
	return mcplib.NewToolResultText(fmt.Sprintf("%s: wrote %s (%d bytes).", summary, output, f.ByteLength())), nil
}

func arguments(req mcplib.CallToolRequest) map[string]any {
	args, _ := req.Params.Arguments.(map[string]any)
	return args
}

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return strings.TrimSpace(v)
}

func stringsArg(args map[string]any, key string) []string {
	switch v := args[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}

func numberArg(args map[string]any, key string) float64 {
	switch v := args[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}
