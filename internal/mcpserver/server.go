// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes catalog tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/studyshelf/internal/apperr"
	"github.com/starford/studyshelf/internal/catalog"
	"github.com/starford/studyshelf/internal/models"
	"github.com/starford/studyshelf/internal/render"
)

const manifestFormatURI = "studyshelf://manifest-format"

// Server wraps the MCP server with catalog tools.
type Server struct {
	mcp      *server.MCPServer
	svc      *catalog.Service
	readOnly bool
	maxFile  int64

	// checkHost vets hosts before remote file downloads.
	checkHost func(host string) error
}

// Option configures a Server.
type Option func(*Server)

// WithReadOnly makes every mutating tool fail.
func WithReadOnly(readOnly bool) Option {
	return func(s *Server) { s.readOnly = readOnly }
}

// WithMaxFileSize caps add_file_resource downloads.
func WithMaxFileSize(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxFile = n
		}
	}
}

// New creates a new MCP server with all catalog tools registered.
func New(svc *catalog.Service, opts ...Option) *Server {
	s := &Server{svc: svc, maxFile: defaultMaxFileSize, checkHost: checkBlockedHost}
	for _, opt := range opts {
		opt(s)
	}

	s.mcp = server.NewMCPServer(
		"studyshelf",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_resources",
		mcp.WithDescription("Case-insensitive substring search over resource titles, subjects, branches and years."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchResources)

	s.mcp.AddTool(mcp.NewTool("list_resources",
		mcp.WithDescription("List every resource with its year, branch and subject, in catalog order."),
	), s.listResources)

	s.mcp.AddTool(mcp.NewTool("browse_catalog",
		mcp.WithDescription("Show the Year → Branch → Subject → Resource tree with node ids. "+
			"Use the ids with rename_node and delete_node."),
	), s.browseCatalog)

	s.mcp.AddTool(mcp.NewTool("add_link_resource",
		mcp.WithDescription("Add a link resource. Missing years, branches and subjects are created. "+
			"Read get_manifest_format first."),
		mcp.WithString("year", mcp.Required(), mcp.Description("Year name, e.g. \"2nd Year\"")),
		mcp.WithString("branch", mcp.Required(), mcp.Description("Branch name, e.g. \"ECE\"")),
		mcp.WithString("subject", mcp.Required(), mcp.Description("Subject name")),
		mcp.WithString("title", mcp.Required(), mcp.Description("Resource title")),
		mcp.WithString("url", mcp.Required(), mcp.Description("Link target")),
	), s.addLinkResource)

	s.mcp.AddTool(mcp.NewTool("add_file_resource",
		mcp.WithDescription("Store a file and add it as a file resource. The source is a base64 data URI "+
			"or an http(s) URL to download."),
		mcp.WithString("year", mcp.Required(), mcp.Description("Year name")),
		mcp.WithString("branch", mcp.Required(), mcp.Description("Branch name")),
		mcp.WithString("subject", mcp.Required(), mcp.Description("Subject name")),
		mcp.WithString("title", mcp.Required(), mcp.Description("Resource title")),
		mcp.WithString("source", mcp.Required(), mcp.Description("data:<mime>;base64,<data> or http(s) URL")),
		mcp.WithString("filename", mcp.Description("Optional file name; derived from the source when empty")),
	), s.addFileResource)

	s.mcp.AddTool(mcp.NewTool("rename_node",
		mcp.WithDescription("Rename a year, branch or subject, or retitle a resource, by node id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Node id from browse_catalog")),
		mcp.WithString("name", mcp.Required(), mcp.Description("New name")),
	), s.renameNode)

	s.mcp.AddTool(mcp.NewTool("delete_node",
		mcp.WithDescription("Delete a node and everything below it. Stored files of removed file resources are deleted too."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Node id from browse_catalog")),
	), s.deleteNode)

	s.mcp.AddTool(mcp.NewTool("get_manifest_format",
		mcp.WithDescription("Returns the catalog document format and the rules the tools enforce."),
	), s.getManifestFormat)

	s.mcp.AddResource(
		mcp.NewResource(manifestFormatURI, "Manifest Format",
			mcp.WithResourceDescription("Structure of the catalog manifest document."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readManifestFormatResource,
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

func toolError(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(err.Error())
}

func jsonResult(v any) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

type recordView struct {
	models.Record
	Location string `json:"location"`
}

func recordViews(recs []models.Record) []recordView {
	out := make([]recordView, 0, len(recs))
	for _, r := range recs {
		out = append(out, recordView{Record: r, Location: r.Location()})
	}
	return out
}

func (s *Server) writable() error {
	if s.readOnly {
		return fmt.Errorf("%w: catalog is read-only", apperr.ErrReadOnly)
	}
	return nil
}

func (s *Server) searchResources(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return toolError(err), nil
	}
	recs, err := s.svc.Search(ctx, query)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(recordViews(recs)), nil
}

func (s *Server) listResources(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	recs, err := s.svc.Flatten(ctx)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(recordViews(recs)), nil
}

func (s *Server) browseCatalog(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	m, _, err := s.svc.Manifest(ctx)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(render.Tree(m, render.TreeOptions{IDs: true})), nil
}

// placement reads the year/branch/subject/title arguments shared by the
// add tools.
func placement(req mcp.CallToolRequest) (catalog.AddResourceInput, error) {
	var in catalog.AddResourceInput
	var err error
	if in.Year, err = req.RequireString("year"); err != nil {
		return in, err
	}
	if in.Branch, err = req.RequireString("branch"); err != nil {
		return in, err
	}
	if in.Subject, err = req.RequireString("subject"); err != nil {
		return in, err
	}
	if in.Title, err = req.RequireString("title"); err != nil {
		return in, err
	}
	return in, nil
}

func (s *Server) addLinkResource(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.writable(); err != nil {
		return toolError(err), nil
	}
	in, err := placement(req)
	if err != nil {
		return toolError(err), nil
	}
	if in.URL, err = req.RequireString("url"); err != nil {
		return toolError(err), nil
	}
	in.Type = models.TypeLink

	res, err := s.svc.AddResource(ctx, in)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(res), nil
}

func (s *Server) renameNode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.writable(); err != nil {
		return toolError(err), nil
	}
	id, err := req.RequireString("id")
	if err != nil {
		return toolError(err), nil
	}
	name, err := req.RequireString("name")
	if err != nil {
		return toolError(err), nil
	}
	node, err := s.svc.Rename(ctx, id, name, "")
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(node), nil
}

func (s *Server) deleteNode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.writable(); err != nil {
		return toolError(err), nil
	}
	id, err := req.RequireString("id")
	if err != nil {
		return toolError(err), nil
	}
	node, err := s.svc.Delete(ctx, id, "")
	if err != nil {
		if apperr.IsNotFound(err) {
			return mcp.NewToolResultError(fmt.Sprintf("no node with id %s; call browse_catalog for current ids", id)), nil
		}
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted %s %q", node.Kind, node.Name)), nil
}

func (s *Server) getManifestFormat(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ManifestFormat), nil
}

func (s *Server) readManifestFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      manifestFormatURI,
			MIMEType: "text/markdown",
			Text:     ManifestFormat,
		},
	}, nil
}
