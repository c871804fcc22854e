package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/lvillar/pdfcompose/internal/pagespec"
	"github.com/lvillar/pdfcompose/mcp"
	"github.com/lvillar/pdfcompose/pageops"
	"github.com/lvillar/pdfcompose/pagerange"
	"github.com/lvillar/pdfcompose/worker"
)

func outputFlag(def string) cli.Flag {
	return &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Value:   def,
		Usage:   "output file",
	}
}

func mergeCommand(st *state) *cli.Command {
	return &cli.Command{
		Name:      "merge",
		Usage:     "concatenate PDF files",
		ArgsUsage: "FILE FILE...",
		Flags:     []cli.Flag{outputFlag("merged.pdf")},
		Action: func(c *cli.Context) error {
			ins, err := readInputs(c.Args().Slice())
			if err != nil {
				return err
			}
			f, err := st.dispatcher.Merge(ins, st.progress(c))
			if err != nil {
				return err
			}
			return st.write(c, c.String("output"), f)
		},
	}
}

func splitCommand(st *state) *cli.Command {
	return &cli.Command{
		Name:      "split",
		Usage:     "split a PDF into one file per page range",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "ranges", Aliases: []string{"r"}, Required: true, Usage: `page ranges, e.g. "1-3,4-6,7"`},
			&cli.StringFlag{Name: "dir", Aliases: []string{"d"}, Usage: "output directory (default: output_dir from the configuration)"},
		},
		Action: func(c *cli.Context) error {
			in, err := readInput(c)
			if err != nil {
				return err
			}
			info, err := st.dispatcher.Inspect(in)
			if err != nil {
				return err
			}
			ranges := pagerange.ParseRanges(c.String("ranges"), info.PageCount)
			files, err := st.dispatcher.Split(in, ranges, st.progress(c))
			if err != nil {
				return err
			}

			dir := c.String("dir")
			if dir == "" {
				dir = st.cfg.OutputDir
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
			for _, f := range files {
				if err := st.write(c, filepath.Join(dir, f.Name), f); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func extractCommand(st *state) *cli.Command {
	return &cli.Command{
		Name:      "extract",
		Usage:     "copy selected pages into a new PDF",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "pages", Aliases: []string{"p"}, Required: true, Usage: `pages, e.g. "1,3,5-7"`},
			outputFlag("extracted_pages.pdf"),
		},
		Action: func(c *cli.Context) error {
			in, err := readInput(c)
			if err != nil {
				return err
			}
			info, err := st.dispatcher.Inspect(in)
			if err != nil {
				return err
			}
			pages := pagerange.ParsePageList(c.String("pages"), info.PageCount)
			f, err := st.dispatcher.Extract(in, pages, st.progress(c))
			if err != nil {
				return err
			}
			return st.write(c, c.String("output"), f)
		},
	}
}

func rotateCommand(st *state) *cli.Command {
	return &cli.Command{
		Name:      "rotate",
		Usage:     "set the rotation of individual pages",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "rotate", Aliases: []string{"r"}, Required: true, Usage: "PAGE:DEGREES, repeatable; 0 resets a page"},
			outputFlag("rotated.pdf"),
		},
		Action: func(c *cli.Context) error {
			rotations, err := pagespec.ParseRotations(strings.Join(c.StringSlice("rotate"), ","))
			if err != nil {
				return err
			}
			in, err := readInput(c)
			if err != nil {
				return err
			}
			f, err := st.dispatcher.Rotate(in, rotations, st.progress(c))
			if err != nil {
				return err
			}
			return st.write(c, c.String("output"), f)
		},
	}
}

func composeCommand(st *state) *cli.Command {
	return &cli.Command{
		Name:  "compose",
		Usage: "build a PDF from pages of several PDFs",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "page", Aliases: []string{"p"}, Required: true, Usage: "FILE:PAGE[:DEGREES], repeatable, in output order"},
			outputFlag("composed.pdf"),
		},
		Action: func(c *cli.Context) error {
			specs := c.StringSlice("page")
			refs := make([]pagespec.Ref, len(specs))
			paths := make([]string, len(specs))
			for i, s := range specs {
				ref, err := pagespec.ParseRef(s)
				if err != nil {
					return err
				}
				refs[i] = ref
				paths[i] = ref.Source
			}
			ins, err := readInputs(paths)
			if err != nil {
				return err
			}

			pages := make([]pageops.PageRef, len(refs))
			for i, ref := range refs {
				pages[i] = pageops.PageRef{Source: ins[i], Index: ref.Index, Rotation: ref.Rotation}
			}
			f, err := st.dispatcher.Compose(pages, st.progress(c))
			if err != nil {
				return err
			}
			return st.write(c, c.String("output"), f)
		},
	}
}

func watermarkCommand(st *state) *cli.Command {
	return &cli.Command{
		Name:      "watermark",
		Usage:     "stamp a text watermark",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "text", Aliases: []string{"t"}, Required: true, Usage: "watermark text"},
			&cli.Float64Flag{Name: "font-size", Usage: "font size in points (default: 60)"},
			&cli.Float64Flag{Name: "opacity", Usage: "opacity from 0 to 1 (default: 0.3)"},
			&cli.Float64Flag{Name: "angle", Usage: "rotation in degrees (default: 45)"},
			&cli.StringFlag{Name: "pages", Aliases: []string{"p"}, Usage: "pages to stamp (default: all)"},
			outputFlag("watermarked.pdf"),
		},
		Action: func(c *cli.Context) error {
			in, err := readInput(c)
			if err != nil {
				return err
			}
			op := pageops.WatermarkOp{
				Input: in,
				Text:  c.String("text"),
				Style: pageops.TextWatermark{
					FontSize: c.Float64("font-size"),
					Opacity:  c.Float64("opacity"),
					Angle:    c.Float64("angle"),
				},
			}
			if sel := c.String("pages"); sel != "" {
				info, err := st.dispatcher.Inspect(in)
				if err != nil {
					return err
				}
				op.Pages = pagerange.ParsePageList(sel, info.PageCount)
				if len(op.Pages) == 0 {
					return fmt.Errorf("no valid pages in %q (PDF has %d pages)", sel, info.PageCount)
				}
			}
			res, err := st.dispatcher.Run(op, st.progress(c))
			if err != nil {
				return err
			}
			return st.write(c, c.String("output"), res.File())
		},
	}
}

func infoCommand(st *state) *cli.Command {
	return &cli.Command{
		Name:      "info",
		Usage:     "print page count and page sizes",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "print JSON"},
		},
		Action: func(c *cli.Context) error {
			in, err := readInput(c)
			if err != nil {
				return err
			}
			info, err := st.dispatcher.Inspect(in)
			if err != nil {
				return err
			}

			w := c.App.Writer
			if c.Bool("json") {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}

			fmt.Fprintf(w, "%s: %d pages, %d bytes", in.Name, info.PageCount, info.ByteLength)
			if info.Encrypted {
				fmt.Fprint(w, ", encrypted")
			}
			fmt.Fprintln(w)
			for _, p := range info.Pages {
				fmt.Fprintf(w, "  page %d: %gx%g pt", p.Number, p.Width, p.Height)
				if p.Rotation != 0 {
					fmt.Fprintf(w, ", rotated %d", p.Rotation)
				}
				fmt.Fprintln(w)
			}
			return nil
		},
	}
}

func protectCommand(st *state) *cli.Command {
	return &cli.Command{
		Name:      "protect",
		Usage:     "password-protect a PDF (not supported)",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "password", Required: true},
		},
		Action: func(c *cli.Context) error {
			in, err := readInput(c)
			if err != nil {
				return err
			}
			_, err = st.dispatcher.Run(pageops.ProtectOp{Input: in, Password: c.String("password")}, st.progress(c))
			return err
		},
	}
}

func workerCommand(st *state) *cli.Command {
	return &cli.Command{
		Name:   "worker",
		Usage:  "serve the worker protocol on stdin and stdout",
		Hidden: true,
		Action: func(c *cli.Context) error {
			return worker.NewServer(st.engine, os.Stdin, os.Stdout, worker.WithServerLogger(st.log)).Serve()
		},
	}
}

func mcpCommand(st *state) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "serve the PDF tools over MCP on stdin and stdout",
		Action: func(c *cli.Context) error {
			s := mcp.NewServer(st.dispatcher, Version, mcp.WithLogger(st.log), mcp.WithOutputDir(st.cfg.OutputDir))
			return s.ServeStdio()
		},
	}
}

func readInput(c *cli.Context) (pageops.Input, error) {
	if c.NArg() != 1 {
		return pageops.Input{}, fmt.Errorf("%s: expected one input file, got %d", c.Command.Name, c.NArg())
	}
	ins, err := readInputs(c.Args().Slice())
	if err != nil {
		return pageops.Input{}, err
	}
	return ins[0], nil
}

// readInputs reads each path once; repeated paths share a buffer.
func readInputs(paths []string) ([]pageops.Input, error) {
	seen := make(map[string]pageops.Input)
	ins := make([]pageops.Input, 0, len(paths))
	for _, p := range paths {
		in, ok := seen[p]
		if !ok {
			data, err := os.ReadFile(p)
			if err != nil {
				return nil, err
			}
			in = pageops.Input{Name: filepath.Base(p), Data: data}
			seen[p] = in
		}
		ins = append(ins, in)
	}
	return ins, nil
}

func (st *state) write(c *cli.Context, path string, f pageops.File) error {
	if err := os.WriteFile(path, f.Data, 0o644); err != nil {
		return err
	}
	if !st.quiet {
		fmt.Fprintf(c.App.ErrWriter, "%s %s (%d bytes)\n", color.GreenString("wrote"), path, f.ByteLength())
	}
	return nil
}
