// Package pageops is the composition engine: it merges, splits, extracts,
// rotates and composes pages of existing PDF documents held in memory.
//
// Every operation follows the same pipeline. Each distinct input buffer is
// loaded once into a Document, the page selection is validated against the
// real page counts, the selected page object graphs are copied into a fresh
// output document and the result is serialized. Sources are never mutated,
// so one loaded document can feed many pages with different rotations.
//
// Parsing and page-tree resolution are done by pdfcpu. Output files are
// written by this package so that identical inputs always produce
// identical bytes.
package pageops

import (
	"fmt"
)

// Input is one caller-supplied PDF buffer. Name identifies the file in
// error messages.
type Input struct {
	Name string
	Data []byte
}

// File is one named output buffer.
type File struct {
	Name string `json:"name"`
	Data []byte `json:"data"`
}

// ByteLength returns the true length of the serialized buffer.
func (f File) ByteLength() int {
	return len(f.Data)
}

// Result is what an operation produces: one file for merge, extract,
// rotate, compose and watermark, one file per range for split, and an
// Info record for inspect.
type Result struct {
	Files []File `json:"files,omitempty"`
	Info  *Info  `json:"info,omitempty"`
}

// File returns the single output of a one-output operation.
func (r *Result) File() File {
	if r == nil || len(r.Files) == 0 {
		return File{}
	}
	return r.Files[0]
}

// Info describes a loaded document.
type Info struct {
	PageCount  int        `json:"pageCount"`
	Encrypted  bool       `json:"encrypted"`
	ByteLength int        `json:"byteLength"`
	Pages      []PageInfo `json:"pages"`
}

// PageInfo is the effective geometry of one page, in points.
type PageInfo struct {
	Number   int     `json:"number"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Rotation int     `json:"rotation"`
}

// PageRef points at one page of one source. Index is 0-based. A nil
// Rotation keeps the source rotation; otherwise it is the absolute
// rotation of the copied page.
type PageRef struct {
	Source   Input
	Index    int
	Rotation *int
}

// Rotation returns a pointer to deg, for use in PageRef literals.
func Rotation(deg int) *int {
	return &deg
}

// normalizeRotation maps any multiple of 90 onto 0, 90, 180 or 270.
func normalizeRotation(deg int) (int, bool) {
	if deg%90 != 0 {
		return 0, false
	}
	deg %= 360
	if deg < 0 {
		deg += 360
	}
	return deg, true
}

func defaultName(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}

func inputName(in Input, pos int) string {
	if in.Name != "" {
		return in.Name
	}
	return fmt.Sprintf("input-%d", pos)
}
