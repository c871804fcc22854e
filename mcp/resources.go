package mcp

import (
	"context"
	"encoding/json"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/lvillar/pdfcompose/pageops"
)

const shelfURI = "pdf://shelf"

// shelfStatus is what the shelf resource reports.
type shelfStatus struct {
	Pending    bool   `json:"pending"`
	Name       string `json:"name,omitempty"`
	ByteLength int    `json:"byteLength,omitempty"`
	PageCount  int    `json:"pageCount,omitempty"`
}

func (s *Server) registerResources() {
	s.mcp.AddResource(
		mcplib.NewResource(shelfURI, "PDF Shelf",
			mcplib.WithResourceDescription(`The result waiting on the shelf, if any. Tools accept "shelf:" as an input to use it.`),
			mcplib.WithMIMEType("application/json"),
		),
		s.readShelf,
	)
}

func (s *Server) readShelf(_ context.Context, _ mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	data, err := json.MarshalIndent(s.shelfStatus(), "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{URI: shelfURI, MIMEType: "application/json", Text: string(data)},
	}, nil
}

func (s *Server) shelfStatus() shelfStatus {
	f, ok := s.shelf.Peek()
	if !ok {
		return shelfStatus{}
	}
	st := shelfStatus{Pending: true, Name: f.Name, ByteLength: f.ByteLength()}
	if n, err := s.pageCount(pageops.Input{Name: f.Name, Data: f.Data}); err == nil {
		st.PageCount = n
	}
	return st
}
