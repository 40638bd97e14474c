// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes provenance tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/provtrack/internal/apperr"
	"github.com/starford/provtrack/internal/export"
	"github.com/starford/provtrack/internal/files"
	"github.com/starford/provtrack/internal/recorder"
	"github.com/starford/provtrack/internal/store"
)

const recordFormatURI = "provtrack://record-format"

// Server wraps the MCP server with provenance tools.
type Server struct {
	mcp      *server.MCPServer
	repo     *store.Repository
	registry *files.Registry
	recorder *recorder.Recorder
	exporter *export.Exporter
}

// New creates a new MCP server with all provenance tools registered.
func New(repo *store.Repository, registry *files.Registry, rec *recorder.Recorder, exp *export.Exporter) *Server {
	s := &Server{repo: repo, registry: registry, recorder: rec, exporter: exp}

	s.mcp = server.NewMCPServer(
		"provtrack",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	formatOpt := mcp.WithString("format",
		mcp.Description("Output format: json (default), xml, narrated or html"),
		mcp.Enum(export.FormatJSON, export.FormatXML, export.FormatNarrative, export.FormatHTML),
	)

	s.mcp.AddTool(mcp.NewTool("get_provenance",
		mcp.WithDescription("Return the provenance record of one file."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Absolute path or URL of the file")),
		formatOpt,
	), s.getProvenance)

	s.mcp.AddTool(mcp.NewTool("find_by_subject",
		mcp.WithDescription("Return the provenance of every file recorded for a subject, oldest write first."),
		mcp.WithString("subject", mcp.Required(), mcp.Description("Subject identifier")),
		formatOpt,
	), s.findBySubject)

	s.mcp.AddTool(mcp.NewTool("export_provenance",
		mcp.WithDescription("Export provenance for the given files, or for all files when none are given. "+
			"With medium=file the export is written to the configured export directory."),
		mcp.WithArray("paths", mcp.WithStringItems(), mcp.Description("Files to export (empty for all)")),
		formatOpt,
		mcp.WithString("medium",
			mcp.Description("direct (default) returns the text; file writes provenance.<ext>"),
			mcp.Enum(export.MediumDirect, export.MediumFile),
		),
	), s.exportProvenance)

	s.mcp.AddTool(mcp.NewTool("log_transformation",
		mcp.WithDescription("Record that a transformation produced new files from parent files. "+
			"Parents must already have provenance. Read the record format first via "+
			"get_record_contract or the "+recordFormatURI+" resource."),
		mcp.WithArray("new", mcp.Required(), mcp.WithStringItems(), mcp.Description("Paths of the produced files")),
		mcp.WithString("transformation", mcp.Required(), mcp.Description("Name of the transformation")),
		mcp.WithArray("parents", mcp.WithStringItems(), mcp.Description("Paths of the input files")),
		mcp.WithString("code", mcp.Description("Code or command line that ran")),
		mcp.WithString("logtext", mcp.Description("Output of the transformation")),
		mcp.WithString("script", mcp.Description("Path of the script that ran")),
		mcp.WithBoolean("transient", mcp.Description("Files are temporary and need not exist")),
	), s.logTransformation)

	s.mcp.AddTool(mcp.NewTool("add_file",
		mcp.WithDescription("Register an existing source file, such as raw acquisition data."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the file")),
		mcp.WithBoolean("transient", mcp.Description("File is temporary and need not exist")),
	), s.addFile)

	s.mcp.AddTool(mcp.NewTool("list_records",
		mcp.WithDescription("List the locations of all recorded files, or of one subject's files."),
		mcp.WithString("subject", mcp.Description("Optional subject to filter by")),
	), s.listRecords)

	s.mcp.AddTool(mcp.NewTool("get_record_contract",
		mcp.WithDescription("Returns the provenance record format. "+
			"Call this before logging transformations to use the recognised field names."),
	), s.getRecordContract)

	s.mcp.AddResource(
		mcp.NewResource(recordFormatURI, "Provenance Record Format",
			mcp.WithResourceDescription("Fields of a provenance record and how they are encoded."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readRecordFormatResource,
	)

	return s
}

// Serve runs the MCP server on the given streams until ctx is cancelled or
// stdin is exhausted.
func (s *Server) Serve(ctx context.Context, stdin io.Reader, stdout io.Writer) error {
	return server.NewStdioServer(s.mcp).Listen(ctx, stdin, stdout)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) getProvenance(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	h, err := s.repo.ByLocation(path)
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("no provenance for %s", path)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := s.exporter.Export(ctx, h, req.GetString("format", export.FormatJSON), export.MediumDirect)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(out), nil
}

func (s *Server) findBySubject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	subject, err := req.RequireString("subject")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	recs, err := s.repo.BySubject(subject)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	handles := make([]*files.Handle, len(recs))
	for i, rec := range recs {
		handles[i] = s.registry.FromProvenance(rec)
	}
	out, err := s.exporter.ExportList(ctx, handles, req.GetString("format", export.FormatJSON), export.MediumDirect)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(out), nil
}

func (s *Server) exportProvenance(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	paths := req.GetStringSlice("paths", nil)

	var handles []*files.Handle
	if len(paths) == 0 {
		all, err := s.repo.Handles()
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		handles = all
	} else {
		for _, p := range paths {
			h, err := s.repo.ByLocation(p)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			handles = append(handles, h)
		}
	}

	out, err := s.exporter.ExportList(ctx, handles,
		req.GetString("format", export.FormatJSON),
		req.GetString("medium", export.MediumDirect))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(out), nil
}

func (s *Server) logTransformation(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	newPaths, err := req.RequireStringSlice("new")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	transformation, err := req.RequireString("transformation")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	handles, err := s.recorder.Log(ctx, recorder.LogRequest{
		New:            newPaths,
		Transformation: transformation,
		Parents:        req.GetStringSlice("parents", nil),
		Code:           req.GetString("code", ""),
		Logtext:        req.GetString("logtext", ""),
		Script:         req.GetString("script", ""),
		Transient:      req.GetBool("transient", false),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	locs := make([]string, len(handles))
	for i, h := range handles {
		locs[i] = h.Location().String()
	}
	return mcp.NewToolResultText("logged: " + strings.Join(locs, ", ")), nil
}

func (s *Server) addFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	h, err := s.recorder.Add(ctx, path, recorder.AddOptions{Transient: req.GetBool("transient", false)})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("added: " + h.Location().String()), nil
}

func (s *Server) listRecords(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	subject := req.GetString("subject", "")

	var locs []string
	if subject != "" {
		recs, err := s.repo.BySubject(subject)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		for _, rec := range recs {
			locs = append(locs, rec.Location().String())
		}
	} else {
		recs, err := s.repo.All()
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		for _, rec := range recs {
			locs = append(locs, rec.Location().String())
		}
	}

	if len(locs) == 0 {
		return mcp.NewToolResultText("no records found"), nil
	}
	return mcp.NewToolResultText(strings.Join(locs, "\n")), nil
}

func (s *Server) getRecordContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(RecordFormatContract), nil
}

func (s *Server) readRecordFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      recordFormatURI,
			MIMEType: "text/markdown",
			Text:     RecordFormatContract,
		},
	}, nil
}
