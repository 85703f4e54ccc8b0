// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes archive tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/pavlix/invoice/internal/archive"
	"github.com/pavlix/invoice/internal/record"
)

// Server wraps the MCP server with archive tools.
type Server struct {
	mcp     *server.MCPServer
	archive *archive.Archive
}

// New creates a new MCP server with all archive tools registered.
func New(a *archive.Archive, version string) *Server {
	s := &Server{archive: a}

	s.mcp = server.NewMCPServer(
		"invoice",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_invoices",
		mcp.WithDescription("List invoice names of the open year, oldest first."),
	), s.listInvoices)

	s.mcp.AddTool(mcp.NewTool("show_invoice",
		mcp.WithDescription("Return the parsed data of one invoice as JSON: items, sum, date, due date and notes."),
		mcp.WithString("selector", mcp.Description("Invoice name or sequence number; empty for the latest invoice")),
	), s.showInvoice)

	s.mcp.AddTool(mcp.NewTool("new_invoice",
		mcp.WithDescription("Create the next invoice for a company. The company must exist. "+
			"Read the directive format first via get_directive_format."),
		mcp.WithString("company", mcp.Required(), mcp.Description("Company file name, e.g. acme")),
	), s.newInvoice)

	s.mcp.AddTool(mcp.NewTool("list_companies",
		mcp.WithDescription("List company names of the open year."),
	), s.listCompanies)

	s.mcp.AddTool(mcp.NewTool("show_company",
		mcp.WithDescription("Return the parsed data of one company as JSON."),
		mcp.WithString("selector", mcp.Required(), mcp.Description("Company file name")),
	), s.showCompany)

	s.mcp.AddTool(mcp.NewTool("get_directive_format",
		mcp.WithDescription("Returns the record file format: file names, directives and their meaning."),
	), s.getDirectiveFormat)

	s.mcp.AddResource(
		mcp.NewResource("invoice://directive-format", "Directive Format",
			mcp.WithResourceDescription("Format of company and invoice record files."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readDirectiveFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listInvoices(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return listNames(s.archive.Invoices())
}

func (s *Server) listCompanies(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return listNames(s.archive.Companies())
}

func listNames(c *record.Collection) (*mcp.CallToolResult, error) {
	items, err := c.List()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(items) == 0 {
		return mcp.NewToolResultText("no records found"), nil
	}
	names := make([]string, len(items))
	for i, r := range items {
		names[i] = r.Name()
	}
	return mcp.NewToolResultText(strings.Join(names, "\n")), nil
}

func (s *Server) showInvoice(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var selector string
	if v, err := req.RequireString("selector"); err == nil {
		selector = v
	}
	return showRecord(s.archive.Invoices(), selector)
}

func (s *Server) showCompany(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	selector, err := req.RequireString("selector")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return showRecord(s.archive.Companies(), selector)
}

func showRecord(c *record.Collection, selector string) (*mcp.CallToolResult, error) {
	r, err := c.Lookup(record.ParseQuery(selector))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := r.Data()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(d.Map(), "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) newInvoice(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	company, err := req.RequireString("company")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	r, err := s.archive.NewInvoice(company)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("created: " + r.Name()), nil
}

func (s *Server) getDirectiveFormat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(DirectiveFormat), nil
}

func (s *Server) readDirectiveFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "invoice://directive-format",
			MIMEType: "text/markdown",
			Text:     DirectiveFormat,
		},
	}, nil
}
