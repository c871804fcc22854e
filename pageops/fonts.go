package pageops

import (
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/font"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Character codes covered by the Widths array of a completed core font.
const (
	firstChar = 32
	lastChar  = 255
)

// completeCoreFont fills in FirstChar, LastChar, Widths and FontDescriptor
// on a Type1 font dict naming one of the standard 14 fonts. Output files
// are PDF 1.7, where these entries are required for every font, while
// older sources and pdfcpu's own stamps leave them out. Entries already
// present are kept; any other dict is returned as is.
func completeCoreFont(d types.Dict) types.Dict {
	if t := d.Type(); t == nil || *t != "Font" {
		return d
	}
	if st := d.Subtype(); st == nil || *st != "Type1" {
		return d
	}
	base := d.NameEntry("BaseFont")
	if base == nil || !font.IsCoreFont(*base) {
		return d
	}
	if _, ok := d.Find("FirstChar"); ok {
		return d
	}

	name := *base
	widths := make(types.Array, 0, lastChar-firstChar+1)
	for c := firstChar; c <= lastChar; c++ {
		widths = append(widths, types.Integer(font.CharWidth(name, rune(c))))
	}
	d["FirstChar"] = types.Integer(firstChar)
	d["LastChar"] = types.Integer(lastChar)
	if _, ok := d.Find("Widths"); !ok {
		d["Widths"] = widths
	}
	if _, ok := d.Find("FontDescriptor"); !ok {
		d["FontDescriptor"] = coreFontDescriptor(name)
	}
	return d
}

func coreFontDescriptor(name string) types.Dict {
	bbox := font.BoundingBox(name)

	flags := 32 // nonsymbolic
	if name == "Symbol" || name == "ZapfDingbats" {
		flags = 4
	}
	italic := 0
	if strings.Contains(name, "Oblique") || strings.Contains(name, "Italic") {
		italic = -12
		flags |= 64
	}

	return types.Dict{
		"Type":        types.Name("FontDescriptor"),
		"FontName":    types.Name(name),
		"Flags":       types.Integer(flags),
		"FontBBox":    bbox.Array(),
		"ItalicAngle": types.Integer(italic),
		"Ascent":      types.Float(bbox.UR.Y),
		"Descent":     types.Float(bbox.LL.Y),
		"StemV":       types.Integer(80),
	}
}
