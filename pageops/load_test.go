package pageops

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/lvillar/pdfcompose/internal/testpdf"
)

func TestLoadCacheParsesEachBufferOnce(t *testing.T) {
	e := New()
	c := e.newLoadCache(KindCompose)

	data := testpdf.Doc(3)
	in := Input{Name: "a.pdf", Data: data}

	var first *Document
	for i := 0; i < 50; i++ {
		doc, err := c.get(in)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if first == nil {
			first = doc
		} else if doc != first {
			t.Fatal("cache returned a different document for the same buffer")
		}
	}
	if c.loads != 1 {
		t.Errorf("expected 1 parse, got %d", c.loads)
	}

	// Equal contents in a different buffer is a different input.
	if _, err := c.get(Input{Name: "copy.pdf", Data: bytes.Clone(data)}); err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.loads != 2 {
		t.Errorf("expected 2 parses, got %d", c.loads)
	}
}

func TestLoadCopiesInput(t *testing.T) {
	data := testpdf.Doc(1)
	doc, err := New().Load(Input{Name: "a.pdf", Data: data})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if &doc.data[0] == &data[0] {
		t.Error("document aliases the caller's buffer")
	}
	if doc.PageCount != 1 {
		t.Errorf("expected 1 page, got %d", doc.PageCount)
	}
}

func TestLoadEmptyInput(t *testing.T) {
	_, err := New().Load(Input{Name: "empty.pdf"})
	if !errors.Is(err, errEmptyInput) {
		t.Errorf("expected empty input cause, got %v", err)
	}
}

func TestNormalizeRotation(t *testing.T) {
	tests := []struct {
		in   int
		want int
		ok   bool
	}{
		{0, 0, true},
		{90, 90, true},
		{360, 0, true},
		{450, 90, true},
		{-90, 270, true},
		{-450, 270, true},
		{45, 0, false},
		{100, 0, false},
	}
	for _, tt := range tests {
		got, ok := normalizeRotation(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("normalizeRotation(%d) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestEncryptionFailure(t *testing.T) {
	if !encryptionFailure(errors.New("pdfcpu: this file is Encrypted")) {
		t.Error("expected encryption failure")
	}
	if encryptionFailure(errors.New("pdfcpu: corrupt xref section")) {
		t.Error("unexpected encryption failure")
	}
}

func TestRelaxedRetry(t *testing.T) {
	validation := errors.New("validateAnnotationDict: missing entry")
	wrapped := fmt.Errorf("read: %w", pdfcpu.ErrWrongPassword)

	tests := []struct {
		name string
		err  error
		mode int
		want bool
	}{
		{"validation failure under strict", validation, model.ValidationStrict, true},
		{"wrong password", pdfcpu.ErrWrongPassword, model.ValidationStrict, false},
		{"wrapped wrong password", wrapped, model.ValidationStrict, false},
		{"already relaxed", validation, model.ValidationRelaxed, false},
	}
	for _, tt := range tests {
		if got := relaxedRetry(tt.err, tt.mode); got != tt.want {
			t.Errorf("%s: relaxedRetry = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestLoadRelaxedAcceptsStampedFonts(t *testing.T) {
	// A standard 14 font without metrics in a PDF 1.7 file, as pdfcpu
	// stamps it: valid in relaxed mode only.
	data := testpdf.BuildVersion("1.7", testpdf.Page{Width: 100, Height: 100, Font: "Helvetica"})

	e := New()
	if _, err := e.load("watermark", Input{Name: "stamped.pdf", Data: data}); err == nil {
		t.Fatal("expected strict validation to reject a core font without metrics")
	}
	doc, err := e.loadRelaxed("watermark", Input{Name: "stamped.pdf", Data: data})
	if err != nil {
		t.Fatalf("relaxed load: %v", err)
	}
	if doc.PageCount != 1 {
		t.Errorf("expected 1 page, got %d", doc.PageCount)
	}
}
