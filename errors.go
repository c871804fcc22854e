package pdfcompose

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Sentinel errors classifying every failure the engine reports.
// Use errors.Is against these to pick a remediation.
var (
	ErrEncryptedOrCorrupted = errors.New("pdfcompose: document is encrypted or corrupted")
	ErrCorruptedDocument    = errors.New("pdfcompose: document is corrupted")
	ErrInvalidPageRange     = errors.New("pdfcompose: invalid page range")
	ErrInvalidPageNumbers   = errors.New("pdfcompose: invalid page numbers")
	ErrInvalidRotation      = errors.New("pdfcompose: invalid rotation")
	ErrInsufficientInputs   = errors.New("pdfcompose: insufficient inputs")
	ErrUnsupported          = errors.New("pdfcompose: unsupported operation")
)

var kindNames = map[error]string{
	ErrEncryptedOrCorrupted: "encrypted_or_corrupted",
	ErrCorruptedDocument:    "corrupted_document",
	ErrInvalidPageRange:     "invalid_page_range",
	ErrInvalidPageNumbers:   "invalid_page_numbers",
	ErrInvalidRotation:      "invalid_rotation",
	ErrInsufficientInputs:   "insufficient_inputs",
	ErrUnsupported:          "unsupported_operation",
}

// KindName returns the stable wire name of a sentinel, or "" if kind is not one.
func KindName(kind error) string {
	return kindNames[kind]
}

// KindByName is the inverse of KindName. It returns nil for unknown names.
func KindByName(name string) error {
	for kind, n := range kindNames {
		if n == name {
			return kind
		}
	}
	return nil
}

// Error is the single error shape returned by every operation.
//
// Its message is the user-facing diagnostic: it names the responsible
// input file when the failure is file-specific and never includes the
// underlying parser cause, which stays reachable through errors.Unwrap.
type Error struct {
	Op    string // operation kind, e.g. "merge"
	Kind  error  // one of the sentinels above
	File  string // responsible input, empty when not file-specific
	Msg   string // human-readable detail
	Pages []int  // offending page numbers (1-based), validation errors only
	Total int    // page count of the document the pages were checked against
	Err   error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s: %s", e.File, e.Msg)
	}
	return e.Msg
}

// Unwrap exposes both the classifying sentinel and the underlying cause.
func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// KindOf returns the sentinel classifying err, or nil for foreign errors.
func KindOf(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	for kind := range kindNames {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// Corrupted reports a structural parse failure of file.
func Corrupted(op, file string, cause error) *Error {
	return &Error{
		Op:   op,
		Kind: ErrCorruptedDocument,
		File: file,
		Msg:  "the PDF is corrupted and could not be read",
		Err:  cause,
	}
}

// EncryptedOrCorrupted reports a document that failed to parse even after
// the encryption-tolerant retry.
func EncryptedOrCorrupted(op, file string, cause error) *Error {
	return &Error{
		Op:   op,
		Kind: ErrEncryptedOrCorrupted,
		File: file,
		Msg:  "the PDF is encrypted or corrupted and could not be opened",
		Err:  cause,
	}
}

// InvalidPageNumbers names the out-of-range pages and the true page count.
func InvalidPageNumbers(op, file string, pages []int, total int) *Error {
	return &Error{
		Op:    op,
		Kind:  ErrInvalidPageNumbers,
		File:  file,
		Msg:   fmt.Sprintf("Invalid page numbers: %s (PDF has %d pages)", joinInts(pages), total),
		Pages: pages,
		Total: total,
	}
}

// InvalidPageRanges names the rejected ranges, given as "start-end" strings.
func InvalidPageRanges(op, file string, ranges []string, total int) *Error {
	return &Error{
		Op:    op,
		Kind:  ErrInvalidPageRange,
		File:  file,
		Msg:   fmt.Sprintf("Invalid page ranges: %s (PDF has %d pages)", strings.Join(ranges, ", "), total),
		Total: total,
	}
}

// joinInts renders 5, 6 as "5, 6".
func joinInts(nums []int) string {
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}
