package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/recdex/internal/config"
	rxerrors "github.com/Aman-CERP/recdex/internal/errors"
	"github.com/Aman-CERP/recdex/internal/ingest"
	"github.com/Aman-CERP/recdex/internal/record"
	"github.com/Aman-CERP/recdex/internal/store"
	"github.com/Aman-CERP/recdex/pkg/indexer"
	"github.com/Aman-CERP/recdex/pkg/searcher"
	"github.com/Aman-CERP/recdex/pkg/version"
)

// RecordWriter indexes one record and reports where it went.
type RecordWriter interface {
	IndexRecord(ctx context.Context, rec any) (indexer.Receipt, error)
}

// Server is the MCP server for recdex.
// It exposes search over every index plus record ingestion to AI clients.
type Server struct {
	mcp      *mcp.Server
	store    *store.Store
	searcher searcher.RecordSearcher
	writer   RecordWriter
	config   *config.Config
	logger   *slog.Logger

	// writeMu serializes the single-owner indexer across tool calls.
	writeMu sync.Mutex
}

// ToolInfo contains information about a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

var tools = []ToolInfo{
	{
		Name:        "search",
		Description: "Search every indexed record. Uses bleve query-string syntax over dotted field paths (e.g. 'msg:timeout', 'props.status:>=500', 'level:ERROR'). Bare words match text fields. Results are ranked by relevance across all record shapes.",
	},
	{
		Name:        "index_record",
		Description: "Index one JSON object. Records with the same field paths and value kinds share an index; the record is searchable as soon as this returns.",
	},
	{
		Name:        "index_status",
		Description: "List the indexes: one per record shape, with document counts and field schemas. Use it to discover which field paths can be queried.",
	},
}

// NewServer creates a new MCP server.
func NewServer(s *store.Store, sr searcher.RecordSearcher, w RecordWriter, cfg *config.Config) (*Server, error) {
	if s == nil {
		return nil, errors.New("store is required")
	}
	if sr == nil {
		return nil, errors.New("searcher is required")
	}
	if w == nil {
		return nil, errors.New("record writer is required")
	}
	if cfg == nil {
		cfg = config.NewConfig()
	}

	srv := &Server{
		store:    s,
		searcher: sr,
		writer:   w,
		config:   cfg,
		logger:   slog.Default(),
	}
	srv.mcp = mcp.NewServer(
		&mcp.Implementation{Name: "recdex", Version: version.Version},
		nil,
	)
	srv.registerTools()
	return srv, nil
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	return append([]ToolInfo(nil), tools...)
}

// CallTool invokes a tool by name with loosely typed arguments, as a client
// would send them.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case "search":
		var in SearchInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return s.search(ctx, in)
	case "index_record":
		var in IndexRecordInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return s.indexRecord(ctx, in)
	case "index_status":
		return s.indexStatus(), nil
	default:
		return nil, NewMethodNotFoundError(name)
	}
}

func decodeArgs(args map[string]any, dst any) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return NewInvalidParamsError(err.Error())
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return NewInvalidParamsError(err.Error())
	}
	return nil
}

func (s *Server) search(ctx context.Context, in SearchInput) (*SearchOutput, error) {
	limit := in.Limit
	if limit <= 0 {
		limit = s.config.Search.DefaultLimit
	}

	results, err := s.searcher.Search(ctx, in.Query, limit)
	if err != nil {
		return nil, MapError(err)
	}

	out := &SearchOutput{Results: make([]SearchResultOutput, 0, len(results))}
	for _, r := range results {
		out.Results = append(out.Results, ToSearchResultOutput(r))
	}
	return out, nil
}

func (s *Server) indexRecord(ctx context.Context, in IndexRecordInput) (*IndexRecordOutput, error) {
	if in.Record == nil {
		return nil, NewInvalidParamsError("record parameter is required")
	}

	// Arguments arrive with every number as float64. Re-decoding keeps
	// integers integral, matching records ingested from NDJSON.
	raw, err := json.Marshal(in.Record)
	if err != nil {
		return nil, NewInvalidParamsError(err.Error())
	}
	rec, err := ingest.Decode(raw)
	if err != nil {
		return nil, MapError(err)
	}

	s.writeMu.Lock()
	receipt, err := s.writer.IndexRecord(ctx, rec)
	s.writeMu.Unlock()
	if err != nil {
		return nil, MapError(err)
	}

	return &IndexRecordOutput{
		Fingerprint: record.FormatFingerprint(receipt.Fingerprint),
		Address:     receipt.Address.String(),
	}, nil
}

func (s *Server) indexStatus() *IndexStatusOutput {
	st := s.store.Stats()
	out := &IndexStatusOutput{
		Indexes:   st.Indexes,
		Documents: st.Documents,
		DataDir:   st.DataDir,
		PerIndex:  make([]IndexInfoOutput, 0, len(st.PerIndex)),
	}
	for _, is := range st.PerIndex {
		info := IndexInfoOutput{
			Fingerprint: record.FormatFingerprint(is.Fingerprint),
			Documents:   is.Documents,
			Segment:     is.Segment,
		}
		if h, ok := s.store.Handle(is.Fingerprint); ok {
			info.Schema = h.Schema().Fields()
		}
		out.PerIndex = append(out.PerIndex, info)
	}
	return out
}

// registerTools registers all tools with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[0].Name, Description: tools[0].Description}, s.mcpSearchHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[1].Name, Description: tools[1].Description}, s.mcpIndexRecordHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[2].Name, Description: tools[2].Description}, s.mcpIndexStatusHandler)

	s.logger.Debug("mcp_tools_registered", slog.Int("count", len(tools)))
}

func (s *Server) mcpSearchHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (
	*mcp.CallToolResult,
	*SearchOutput,
	error,
) {
	out, err := s.search(ctx, input)
	if err != nil {
		s.logToolError("search", err)
		return nil, nil, err
	}
	return nil, out, nil
}

func (s *Server) mcpIndexRecordHandler(ctx context.Context, _ *mcp.CallToolRequest, input IndexRecordInput) (
	*mcp.CallToolResult,
	*IndexRecordOutput,
	error,
) {
	out, err := s.indexRecord(ctx, input)
	if err != nil {
		s.logToolError("index_record", err)
		return nil, nil, err
	}
	return nil, out, nil
}

func (s *Server) mcpIndexStatusHandler(_ context.Context, _ *mcp.CallToolRequest, _ IndexStatusInput) (
	*mcp.CallToolResult,
	*IndexStatusOutput,
	error,
) {
	return nil, s.indexStatus(), nil
}

func (s *Server) logToolError(tool string, err error) {
	s.logger.Warn("mcp_tool_failed",
		slog.String("tool", tool),
		slog.Any("error", rxerrors.FormatForLog(err)))
}

// Serve runs the server on transport until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("mcp_server_starting", slog.String("transport", transport))

	switch transport {
	case "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("mcp_server_stopped", slog.String("error", err.Error()))
			return err
		}
		s.logger.Info("mcp_server_stopped")
		return nil
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}
