// Package pdfcompose is the root of a document composition engine for PDF
// files held in memory: merge, split, page extraction, per-page rotation
// and cross-document page composition, with progress feedback and
// foreground or background-worker execution.
//
// The root package only carries the error taxonomy shared by every
// subpackage. The work is done elsewhere:
//
//   - pagerange parses "1-3,5" style page selections.
//   - pageops loads documents and runs the composition engine.
//   - progress defines the progress events every operation emits.
//   - worker hosts an engine behind a request/response byte stream.
//   - dispatch picks between the foreground engine and a background worker.
//   - handoff passes one operation's output to the next.
//   - config loads settings from YAML, .env and the environment.
//   - mcp serves the operations as MCP tools.
//
// The pdfcompose command (cmd/pdfcompose) wraps all of it.
//
// # Errors
//
// Every operation fails with a *Error whose Kind is one of the sentinel
// errors (ErrCorruptedDocument, ErrInvalidPageNumbers, ...). The message
// is safe to show to users as-is:
//
//	f, err := d.Extract(input, []int{7}, nil)
//	if errors.Is(err, pdfcompose.ErrInvalidPageNumbers) {
//	    // "Invalid page numbers: 7 (PDF has 4 pages)"
//	}
package pdfcompose
