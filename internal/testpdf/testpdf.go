// Package testpdf assembles small, valid PDF documents byte by byte for
// tests. Every page has a distinct MediaBox width so tests can tell pages
// apart after they have been reordered, copied or merged.
package testpdf

import (
	"bytes"
	"fmt"
	"math"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Page describes one page of a fixture.
type Page struct {
	Width, Height float64
	Rotate        int // written as /Rotate when non-zero
	LinkTo        int    // 1-based page a Link annotation points at, when non-zero
	Font          string // BaseFont of a bare Type1 font resource, when set
}

// Pages returns n portrait pages whose widths are base+1, base+2, ... base+n.
func Pages(n int, base float64) []Page {
	pages := make([]Page, n)
	for i := range pages {
		pages[i] = Page{Width: base + float64(i+1), Height: 400}
	}
	return pages
}

// Doc returns an n-page document with page widths 101, 102, ...
func Doc(n int) []byte {
	return Build(Pages(n, 100)...)
}

// DocWithBase returns an n-page document with page widths base+1, base+2, ...
func DocWithBase(n int, base float64) []byte {
	return Build(Pages(n, base)...)
}

// Build writes a classic (xref table) PDF 1.4 file holding pages.
func Build(pages ...Page) []byte {
	return BuildVersion("1.4", pages...)
}

// BuildVersion is Build with the given header version.
func BuildVersion(version string, pages ...Page) []byte {
	w := newWriter(version)

	// 1: catalog, 2: page tree, then a page and a content stream per page.
	w.object(1, "<</Type/Catalog/Pages 2 0 R>>")

	kids := new(bytes.Buffer)
	for i := range pages {
		fmt.Fprintf(kids, "%d 0 R ", 3+2*i)
	}
	w.object(2, fmt.Sprintf("<</Type/Pages/Kids[%s]/Count %d/Resources<<>>>>", bytes.TrimSpace(kids.Bytes()), len(pages)))

	// Link annotations follow the pages.
	annot := 3 + 2*len(pages)
	for i, p := range pages {
		pageNum, contentNum := 3+2*i, 4+2*i
		extra := ""
		if p.Rotate != 0 {
			extra += fmt.Sprintf("/Rotate %d", p.Rotate)
		}
		if p.LinkTo != 0 {
			extra += fmt.Sprintf("/Annots[%d 0 R]", annot)
			w.object(annot, fmt.Sprintf("<</Type/Annot/Subtype/Link/Rect[0 0 50 50]/Border[0 0 0]/Dest[%d 0 R/Fit]>>", 3+2*(p.LinkTo-1)))
			annot++
		}
		resources := "<<>>"
		if p.Font != "" {
			resources = fmt.Sprintf("<</Font<</F1<</Type/Font/Subtype/Type1/BaseFont/%s>>>>>>", p.Font)
		}
		w.object(pageNum, fmt.Sprintf("<</Type/Page/Parent 2 0 R/MediaBox[0 0 %s %s]%s/Resources%s/Contents %d 0 R>>",
			num(p.Width), num(p.Height), extra, resources, contentNum))

		stream := fmt.Sprintf("0 0 m %s %s l S", num(p.Width), num(p.Height))
		w.object(contentNum, fmt.Sprintf("<</Length %d>>\nstream\n%s\nendstream", len(stream), stream))
	}

	return w.finish("/Root 1 0 R")
}

// Encrypted returns a one-page document whose trailer references a
// Standard security handler that no password opens.
func Encrypted() []byte {
	w := newWriter("1.4")
	w.object(1, "<</Type/Catalog/Pages 2 0 R>>")
	w.object(2, "<</Type/Pages/Kids[3 0 R]/Count 1>>")
	w.object(3, "<</Type/Page/Parent 2 0 R/MediaBox[0 0 200 400]/Resources<<>>>>")

	junk := bytes.Repeat([]byte("A1"), 32)
	w.object(4, fmt.Sprintf("<</Filter/Standard/V 1/R 2/Length 40/P -4/O<%s>/U<%s>>>", junk, junk))

	id := "<00112233445566778899AABBCCDDEEFF>"
	return w.finish(fmt.Sprintf("/Root 1 0 R/Encrypt 4 0 R/ID[%s %s]", id, id))
}

// Corrupt returns bytes that are not a PDF at all.
func Corrupt() []byte {
	return []byte("this is a plain text file pretending to be a PDF\n")
}

// PageGeometry is what Inspect reports for one page of an output.
type PageGeometry struct {
	Width, Height float64
	Rotate        int
}

// Geometry parses data and returns the effective geometry of every page.
func Geometry(data []byte) ([]PageGeometry, error) {
	ctx, err := readRelaxed(data)
	if err != nil {
		return nil, err
	}

	pages := make([]PageGeometry, 0, ctx.PageCount)
	for n := 1; n <= ctx.PageCount; n++ {
		_, _, inh, err := ctx.PageDict(n, false)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", n, err)
		}
		g := PageGeometry{Rotate: inh.Rotate}
		if inh.MediaBox != nil {
			g.Width = inh.MediaBox.Width()
			g.Height = inh.MediaBox.Height()
		}
		pages = append(pages, g)
	}
	return pages, nil
}

// LinkTargets returns, for every page, the 1-based page that its first
// Link annotation points at. Pages without a link, and links whose
// destination is not a page of data, report 0.
func LinkTargets(data []byte) ([]int, error) {
	ctx, err := readRelaxed(data)
	if err != nil {
		return nil, err
	}

	pageOf := make(map[int]int)
	dicts := make([]types.Dict, ctx.PageCount)
	for n := 1; n <= ctx.PageCount; n++ {
		d, ref, _, err := ctx.PageDict(n, false)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", n, err)
		}
		dicts[n-1] = d
		if ref != nil {
			pageOf[ref.ObjectNumber.Value()] = n
		}
	}

	targets := make([]int, ctx.PageCount)
	for i, d := range dicts {
		annots, err := ctx.DereferenceArray(d["Annots"])
		if err != nil || len(annots) == 0 {
			continue
		}
		annot, err := ctx.DereferenceDict(annots[0])
		if err != nil {
			return nil, err
		}
		dest, err := ctx.DereferenceArray(annot["Dest"])
		if err != nil || len(dest) == 0 {
			continue
		}
		if ir, ok := dest[0].(types.IndirectRef); ok {
			targets[i] = pageOf[ir.ObjectNumber.Value()]
		}
	}
	return targets, nil
}

// Widths returns the MediaBox width of every page, rounded to integers.
func Widths(data []byte) ([]int, error) {
	geo, err := Geometry(data)
	if err != nil {
		return nil, err
	}
	widths := make([]int, len(geo))
	for i, g := range geo {
		widths[i] = int(math.Round(g.Width))
	}
	return widths, nil
}

func readRelaxed(data []byte) (*model.Context, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return nil, err
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, err
	}
	return ctx, nil
}

type writer struct {
	buf     bytes.Buffer
	offsets map[int]int
	max     int
}

func newWriter(version string) *writer {
	w := &writer{offsets: make(map[int]int)}
	w.buf.WriteString("%PDF-" + version + "\n")
	return w
}

func (w *writer) object(id int, body string) {
	w.offsets[id] = w.buf.Len()
	w.max = max(w.max, id)
	fmt.Fprintf(&w.buf, "%d 0 obj\n%s\nendobj\n", id, body)
}

// finish appends the xref table and trailer. Each xref entry is exactly
// 20 bytes including its two-character end of line.
func (w *writer) finish(trailer string) []byte {
	xref := w.buf.Len()
	fmt.Fprintf(&w.buf, "xref\n0 %d\n", w.max+1)
	fmt.Fprintf(&w.buf, "%010d %05d f \n", 0, 65535)
	for n := 1; n <= w.max; n++ {
		fmt.Fprintf(&w.buf, "%010d %05d n \n", w.offsets[n], 0)
	}
	fmt.Fprintf(&w.buf, "trailer\n<</Size %d%s>>\nstartxref\n%d\n%%%%EOF\n", w.max+1, trailer, xref)
	return w.buf.Bytes()
}

func num(f float64) string {
	if f == math.Trunc(f) {
		return fmt.Sprintf("%d", int(f))
	}
	return fmt.Sprintf("%.2f", f)
}
