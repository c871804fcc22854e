package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/lvillar/pdfcompose/dispatch"
	"github.com/lvillar/pdfcompose/internal/testpdf"
)

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type toolResult struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	IsError bool `json:"isError"`
}

func (r toolResult) text() string {
	var parts []string
	for _, c := range r.Content {
		parts = append(parts, c.Text)
	}
	return strings.Join(parts, "\n")
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	d := dispatch.New(nil)
	t.Cleanup(func() { d.Close() })
	return NewServer(d, "test", WithOutputDir(t.TempDir()))
}

func sendRequest(t *testing.T, s *Server, method string, id int, params any) rpcResponse {
	t.Helper()

	req := map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  method,
	}
	if params != nil {
		req["params"] = params
	}
	reqBytes, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshaling request: %v", err)
	}

	msg := s.HandleMessage(context.Background(), reqBytes)
	out, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshaling response: %v", err)
	}

	var resp rpcResponse
	if err := json.Unmarshal(out, &resp); err != nil {
		t.Fatalf("unmarshaling response %q: %v", out, err)
	}
	return resp
}

func callTool(t *testing.T, s *Server, name string, args map[string]any) toolResult {
	t.Helper()

	resp := sendRequest(t, s, "tools/call", 1, map[string]any{"name": name, "arguments": args})
	if resp.Error != nil {
		t.Fatalf("%s: unexpected protocol error: %v", name, resp.Error.Message)
	}
	var res toolResult
	if err := json.Unmarshal(resp.Result, &res); err != nil {
		t.Fatalf("%s: unmarshaling result: %v", name, err)
	}
	return res
}

func writePDF(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func widthsOf(t *testing.T, path string) []int {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	w, err := testpdf.Widths(data)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return w
}

func TestServerInitialize(t *testing.T) {
	s := newTestServer(t)

	resp := sendRequest(t, s, "initialize", 1, map[string]any{
		"protocolVersion": "2024-11-05",
		"capabilities":    map[string]any{},
		"clientInfo":      map[string]any{"name": "test", "version": "1.0"},
	})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error.Message)
	}

	var result struct {
		ServerInfo struct {
			Name string `json:"name"`
		} `json:"serverInfo"`
	}
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatal(err)
	}
	if result.ServerInfo.Name != "pdfcompose" {
		t.Fatalf("unexpected server name: %v", result.ServerInfo.Name)
	}
}

func TestServerToolsList(t *testing.T) {
	s := newTestServer(t)

	resp := sendRequest(t, s, "tools/list", 2, nil)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error.Message)
	}

	var result struct {
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
	}
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatal(err)
	}

	var names []string
	for _, tool := range result.Tools {
		names = append(names, tool.Name)
	}
	expected := []string{"merge_pdfs", "split_pdf", "extract_pages", "rotate_pages", "compose_pages", "watermark_pdf", "pdf_info", "protect_pdf"}
	for _, name := range expected {
		if !slices.Contains(names, name) {
			t.Errorf("expected tool %q not found", name)
		}
	}
}

func TestServerResourcesList(t *testing.T) {
	s := newTestServer(t)

	resp := sendRequest(t, s, "resources/list", 3, nil)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error.Message)
	}
	if !strings.Contains(string(resp.Result), shelfURI) {
		t.Fatalf("shelf resource not listed: %s", resp.Result)
	}
}

func TestServerUnknownMethod(t *testing.T) {
	s := newTestServer(t)

	resp := sendRequest(t, s, "nonexistent/method", 5, nil)
	if resp.Error == nil {
		t.Fatal("expected error for unknown method")
	}
}

func TestMergeToFile(t *testing.T) {
	s := newTestServer(t)
	dir := t.TempDir()
	a := writePDF(t, dir, "a.pdf", testpdf.Doc(2))
	b := writePDF(t, dir, "b.pdf", testpdf.DocWithBase(2, 200))
	out := filepath.Join(dir, "out.pdf")

	res := callTool(t, s, "merge_pdfs", map[string]any{"inputs": []string{a, b, a}, "output": out})
	if res.IsError {
		t.Fatalf("merge failed: %s", res.text())
	}

	want := []int{101, 102, 201, 202, 101, 102}
	if got := widthsOf(t, out); !slices.Equal(got, want) {
		t.Fatalf("widths = %v, want %v", got, want)
	}
}

func TestShelfChain(t *testing.T) {
	s := newTestServer(t)
	dir := t.TempDir()
	a := writePDF(t, dir, "a.pdf", testpdf.Doc(2))
	b := writePDF(t, dir, "b.pdf", testpdf.DocWithBase(1, 200))

	res := callTool(t, s, "merge_pdfs", map[string]any{"inputs": []string{a, b}})
	if res.IsError {
		t.Fatalf("merge failed: %s", res.text())
	}
	if !strings.Contains(res.text(), "merged.pdf") || !s.shelf.Pending() {
		t.Fatalf("result not on the shelf: %s", res.text())
	}

	// A failing tool leaves the shelf in place.
	res = callTool(t, s, "rotate_pages", map[string]any{"input": ShelfInput, "rotations": "9:90"})
	if !res.IsError {
		t.Fatal("expected error for page 9")
	}
	if !strings.Contains(res.text(), "Invalid page numbers: 9 (PDF has 3 pages)") {
		t.Fatalf("unexpected message: %s", res.text())
	}
	if !s.shelf.Pending() {
		t.Fatal("failed tool consumed the shelf")
	}

	out := filepath.Join(dir, "out.pdf")
	res = callTool(t, s, "extract_pages", map[string]any{"input": ShelfInput, "pages": "3,1", "output": out})
	if res.IsError {
		t.Fatalf("extract failed: %s", res.text())
	}
	if got := widthsOf(t, out); !slices.Equal(got, []int{101, 201}) {
		t.Fatalf("widths = %v", got)
	}

	res = callTool(t, s, "pdf_info", map[string]any{"input": ShelfInput})
	if !res.IsError || !strings.Contains(res.text(), "shelf is empty") {
		t.Fatalf("expected empty shelf, got %s", res.text())
	}
}

func TestSplitWritesParts(t *testing.T) {
	s := newTestServer(t)
	dir := t.TempDir()
	in := writePDF(t, dir, "doc.pdf", testpdf.Doc(4))

	res := callTool(t, s, "split_pdf", map[string]any{"input": in, "ranges": "1-2, 3-4, 9", "outputDir": dir})
	if res.IsError {
		t.Fatalf("split failed: %s", res.text())
	}

	first := widthsOf(t, filepath.Join(dir, "split_1_pages_1-2.pdf"))
	second := widthsOf(t, filepath.Join(dir, "split_2_pages_3-4.pdf"))
	if !slices.Equal(first, []int{101, 102}) || !slices.Equal(second, []int{103, 104}) {
		t.Fatalf("parts = %v, %v", first, second)
	}
}

func TestSplitWriteFailureKeepsShelf(t *testing.T) {
	s := newTestServer(t)
	dir := t.TempDir()
	in := writePDF(t, dir, "doc.pdf", testpdf.Doc(4))

	res := callTool(t, s, "merge_pdfs", map[string]any{"inputs": []string{in, in}})
	if res.IsError {
		t.Fatalf("merge failed: %s", res.text())
	}

	// The second part cannot be written: a directory has its name.
	parts := t.TempDir()
	if err := os.Mkdir(filepath.Join(parts, "split_2_pages_5-8.pdf"), 0o755); err != nil {
		t.Fatal(err)
	}
	res = callTool(t, s, "split_pdf", map[string]any{"input": ShelfInput, "ranges": "1-4,5-8", "outputDir": parts})
	if !res.IsError {
		t.Fatal("expected write error")
	}
	if _, err := os.Stat(filepath.Join(parts, "split_1_pages_1-4.pdf")); !os.IsNotExist(err) {
		t.Errorf("first part left behind (stat: %v)", err)
	}
	if !s.shelf.Pending() {
		t.Fatal("failed split consumed the shelf")
	}
}

func TestComposeTool(t *testing.T) {
	s := newTestServer(t)
	dir := t.TempDir()
	a := writePDF(t, dir, "a.pdf", testpdf.Doc(3))
	b := writePDF(t, dir, "b.pdf", testpdf.DocWithBase(2, 200))
	out := filepath.Join(dir, "out.pdf")

	res := callTool(t, s, "compose_pages", map[string]any{
		"pages":  []string{b + ":2", a + ":3:90", a + ":1"},
		"output": out,
	})
	if res.IsError {
		t.Fatalf("compose failed: %s", res.text())
	}

	data, _ := os.ReadFile(out)
	geo, err := testpdf.Geometry(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(geo) != 3 || geo[0].Width != 202 || geo[1].Width != 103 || geo[1].Rotate != 90 || geo[2].Width != 101 {
		t.Fatalf("unexpected pages: %+v", geo)
	}
}

func TestErrorsNameTheFile(t *testing.T) {
	s := newTestServer(t)
	dir := t.TempDir()
	good := writePDF(t, dir, "good.pdf", testpdf.Doc(1))
	bad := writePDF(t, dir, "bad.pdf", testpdf.Corrupt())

	res := callTool(t, s, "merge_pdfs", map[string]any{"inputs": []string{good, bad}})
	if !res.IsError {
		t.Fatal("expected error")
	}
	if !strings.HasPrefix(res.text(), "bad.pdf: ") {
		t.Fatalf("message does not name the file: %s", res.text())
	}

	res = callTool(t, s, "merge_pdfs", map[string]any{"inputs": []string{good}})
	if !res.IsError || !strings.Contains(res.text(), "At least two PDF files are required to merge (got 1)") {
		t.Fatalf("unexpected result: %s", res.text())
	}
}

func TestProtectFails(t *testing.T) {
	s := newTestServer(t)
	dir := t.TempDir()
	in := writePDF(t, dir, "doc.pdf", testpdf.Doc(1))

	res := callTool(t, s, "protect_pdf", map[string]any{"input": in, "password": "secret"})
	if !res.IsError || !strings.Contains(res.text(), "not supported") {
		t.Fatalf("unexpected result: %s", res.text())
	}
}

func TestInfoAndShelfResource(t *testing.T) {
	s := newTestServer(t)
	dir := t.TempDir()
	in := writePDF(t, dir, "doc.pdf", testpdf.Doc(3))

	res := callTool(t, s, "pdf_info", map[string]any{"input": in})
	if res.IsError {
		t.Fatalf("info failed: %s", res.text())
	}
	var info struct {
		PageCount int `json:"pageCount"`
	}
	if err := json.Unmarshal([]byte(res.text()), &info); err != nil || info.PageCount != 3 {
		t.Fatalf("unexpected info %s (%v)", res.text(), err)
	}

	if st := s.shelfStatus(); st.Pending {
		t.Fatalf("shelf should be empty: %+v", st)
	}
	res = callTool(t, s, "watermark_pdf", map[string]any{"input": in, "text": "DRAFT", "pages": "2"})
	if res.IsError {
		t.Fatalf("watermark failed: %s", res.text())
	}
	st := s.shelfStatus()
	if !st.Pending || st.Name != "watermarked.pdf" || st.PageCount != 3 {
		t.Fatalf("unexpected shelf status: %+v", st)
	}

	// Inspecting the shelf does not consume it.
	callTool(t, s, "pdf_info", map[string]any{"input": ShelfInput})
	if !s.shelf.Pending() {
		t.Fatal("pdf_info consumed the shelf")
	}
}
