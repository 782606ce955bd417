package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kairos/pkg/adapter"
	"github.com/m-mizutani/kairos/pkg/journal"
	"github.com/m-mizutani/kairos/pkg/model"
	"github.com/m-mizutani/kairos/pkg/usecase/echo"
	"github.com/m-mizutani/kairos/pkg/usecase/memory"
	"github.com/m-mizutani/kairos/pkg/utils/logging"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	serverName    = "kairos"
	serverVersion = "0.1.0"
)

// Server exposes the journal to MCP clients as read-only tools.
//
// The SDK may run tool handlers concurrently while the journal expects a
// single caller, so every handler holds mu.
type Server struct {
	mu         sync.Mutex
	journal    *journal.Journal
	summarizer adapter.Summarizer
	tuning     model.Tuning
	server     *mcp.Server
}

type Option func(*Server)

func WithTuning(t model.Tuning) Option {
	return func(s *Server) {
		s.tuning = t
	}
}

// NewServer registers the journal tools. The journal must be opened by the
// caller. build_context is only offered when summarizer is not nil.
func NewServer(j *journal.Journal, summarizer adapter.Summarizer, opts ...Option) *Server {
	s := &Server{
		journal:    j,
		summarizer: summarizer,
		tuning:     model.DefaultTuning(),
		server: mcp.NewServer(&mcp.Implementation{
			Name:    serverName,
			Version: serverVersion,
		}, nil),
	}
	for _, opt := range opts {
		opt(s)
	}

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "journal_list",
		Description: "List past divination records, newest first",
	}, s.journalList)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "find_echo",
		Description: "Find a recent record whose query repeats the given one",
	}, s.findEcho)

	if summarizer != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "build_context",
			Description: "Distill the most recent records into an archetypal summary",
		}, s.buildContext)
	}

	return s
}

// Run serves over stdio until ctx is cancelled or the client disconnects
func (s *Server) Run(ctx context.Context) error {
	logging.From(ctx).Info("starting MCP server", "transport", "stdio")
	if err := s.server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return goerr.Wrap(err, "MCP server stopped")
	}
	return nil
}

// Handler returns a streamable HTTP handler serving the same tools
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return s.server
	}, nil)
}

// RecordView is a record as returned to MCP clients
type RecordView struct {
	ID                string    `json:"id"`
	Query             string    `json:"query"`
	Summary           string    `json:"summary"`
	CreatedAt         time.Time `json:"created_at"`
	SeedUsed          string    `json:"seed_used,omitempty"`
	VisualizationSeed string    `json:"visualization_seed,omitempty"`
	AuraSeed          string    `json:"aura_seed,omitempty"`
}

func newRecordView(r *model.Record) RecordView {
	return RecordView{
		ID:                string(r.ID),
		Query:             r.Query,
		Summary:           r.Summary,
		CreatedAt:         r.CreatedAt,
		SeedUsed:          model.Deref(r.SeedUsed),
		VisualizationSeed: model.Deref(r.VisualizationSeed),
		AuraSeed:          model.Deref(r.AuraSeed),
	}
}

func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to encode tool result")
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(raw)},
		},
	}, nil, nil
}

type journalListParams struct {
	Limit int `json:"limit,omitempty" jsonschema:"Maximum number of records to return. All records when zero"`
}

// JournalListResult is the payload of journal_list
type JournalListResult struct {
	Records []RecordView `json:"records"`
	Total   int          `json:"total"`
}

func (s *Server) journalList(ctx context.Context, req *mcp.CallToolRequest, params *journalListParams) (*mcp.CallToolResult, any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.journal.GetAll(ctx)
	if err != nil {
		return nil, nil, err
	}

	n := len(records)
	if params.Limit > 0 {
		n = min(params.Limit, n)
	}

	out := JournalListResult{
		Records: make([]RecordView, 0, n),
		Total:   len(records),
	}
	for _, r := range records[:n] {
		out.Records = append(out.Records, newRecordView(r))
	}
	return jsonResult(out)
}

type findEchoParams struct {
	Query string `json:"query" jsonschema:"Question to compare against recent records"`
}

// FindEchoResult is the payload of find_echo
type FindEchoResult struct {
	Found  bool        `json:"found"`
	Record *RecordView `json:"record,omitempty"`
}

func (s *Server) findEcho(ctx context.Context, req *mcp.CallToolRequest, params *findEchoParams) (*mcp.CallToolResult, any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.journal.GetAll(ctx)
	if err != nil {
		return nil, nil, err
	}

	var out FindEchoResult
	if hit := echo.FindEcho(params.Query, records, echo.WithTuning(s.tuning)); hit != nil {
		view := newRecordView(hit)
		out.Found = true
		out.Record = &view
	}
	return jsonResult(out)
}

type buildContextParams struct {
	MaxRecords int `json:"max_records,omitempty" jsonschema:"Number of recent records to distill. Defaults to the configured context window"`
}

// BuildContextResult is the payload of build_context
type BuildContextResult struct {
	Context string `json:"context"`
}

func (s *Server) buildContext(ctx context.Context, req *mcp.CallToolRequest, params *buildContextParams) (*mcp.CallToolResult, any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.journal.GetAll(ctx)
	if err != nil {
		return nil, nil, err
	}

	limit := s.tuning.ContextWindow
	if params.MaxRecords > 0 {
		limit = params.MaxRecords
	}

	return jsonResult(BuildContextResult{
		Context: memory.BuildContext(ctx, s.summarizer, records, limit),
	})
}
