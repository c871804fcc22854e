// Package pagespec parses the page arguments shared by the CLI and the MCP
// tools: rotation lists such as "1:90,3:0" and page references such as
// "report.pdf:2:180". Page numbers are 1-based in text and 0-based in the
// returned values, matching pageops.
package pagespec

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseRotations parses comma-separated "page:degrees" pairs into a
// rotation map keyed by 0-based page index. Later pairs for the same page
// win. Page bounds and rotation values are checked by the engine.
func ParseRotations(text string) (map[int]int, error) {
	rotations := make(map[int]int)
	for _, tok := range strings.Split(text, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		page, deg, ok := strings.Cut(tok, ":")
		if !ok {
			return nil, fmt.Errorf("rotation %q: want page:degrees", tok)
		}
		n, err := pageNumber(page)
		if err != nil {
			return nil, fmt.Errorf("rotation %q: %w", tok, err)
		}
		d, err := strconv.Atoi(strings.TrimSpace(deg))
		if err != nil {
			return nil, fmt.Errorf("rotation %q: invalid degrees", tok)
		}
		rotations[n-1] = d
	}
	if len(rotations) == 0 {
		return nil, fmt.Errorf("no rotations in %q", text)
	}
	return rotations, nil
}

// Ref is a parsed page reference.
type Ref struct {
	Source   string // file path or other source name
	Index    int    // 0-based
	Rotation *int   // nil keeps the source rotation
}

// ParseRef parses "source:page" or "source:page:degrees". The source may
// itself contain colons; numbers are taken from the end. A trailing number
// is a rotation only when it is a multiple of 90 preceded by a page
// number, so "dir:5:3" is page 3 of "dir:5" while "dir:5:90" is page 5 of
// "dir" rotated by 90.
func ParseRef(s string) (Ref, error) {
	rest, last, ok := cutLast(s)
	if !ok {
		return Ref{}, fmt.Errorf("page reference %q: want source:page[:degrees]", s)
	}
	lastN, err := strconv.Atoi(last)
	if err != nil {
		return Ref{}, fmt.Errorf("page reference %q: want source:page[:degrees]", s)
	}

	if src, mid, ok := cutLast(rest); ok && src != "" && lastN%90 == 0 {
		if page, err := pageNumber(mid); err == nil {
			deg := lastN
			return Ref{Source: src, Index: page - 1, Rotation: &deg}, nil
		}
	}

	if rest == "" || lastN < 1 {
		return Ref{}, fmt.Errorf("page reference %q: want source:page[:degrees]", s)
	}
	return Ref{Source: rest, Index: lastN - 1}, nil
}

func cutLast(s string) (before, after string, ok bool) {
	i := strings.LastIndex(s, ":")
	if i < 0 {
		return s, "", false
	}
	return s[:i], strings.TrimSpace(s[i+1:]), true
}

func pageNumber(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid page number %q", s)
	}
	return n, nil
}
