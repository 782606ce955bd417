package mcp_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/kairos/pkg/journal"
	"github.com/m-mizutani/kairos/pkg/model"
	"github.com/m-mizutani/kairos/pkg/repository"
	"github.com/m-mizutani/kairos/pkg/service/mcp"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

type mockSummarizer struct {
	summarizeFunc func(ctx context.Context, text string) (string, error)
}

func (m *mockSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	if m.summarizeFunc != nil {
		return m.summarizeFunc(ctx, text)
	}
	return "", errors.New("not implemented")
}

func connect(t *testing.T, ctx context.Context, srv *mcp.Server) *mcpsdk.ClientSession {
	t.Helper()

	testServer := httptest.NewServer(srv.Handler())
	t.Cleanup(testServer.Close)

	client := mcpsdk.NewClient(&mcpsdk.Implementation{
		Name:    "kairos-test",
		Version: "0.0.1",
	}, nil)
	session, err := client.Connect(ctx, &mcpsdk.StreamableClientTransport{
		Endpoint: testServer.URL,
	}, nil)
	gt.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func callTool[T any](t *testing.T, ctx context.Context, session *mcpsdk.ClientSession, name string, args map[string]any) T {
	t.Helper()

	result, err := session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	gt.NoError(t, err)
	gt.False(t, result.IsError)
	gt.A(t, result.Content).Length(1)

	text, ok := result.Content[0].(*mcpsdk.TextContent)
	gt.True(t, ok)

	var out T
	gt.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	return out
}

func newJournal(t *testing.T, ctx context.Context, queries ...string) *journal.Journal {
	t.Helper()
	j := journal.New(journal.NewStore(repository.NewMemory()))
	j.Open(ctx)
	// added oldest first so queries[len-1] ends up newest
	for _, q := range queries {
		_, err := j.Add(ctx, model.RecordInput{Query: q, Summary: "summary of " + q})
		gt.NoError(t, err)
	}
	return j
}

func TestServerTools(t *testing.T) {
	ctx := context.Background()

	t.Run("lists tools", func(t *testing.T) {
		session := connect(t, ctx, mcp.NewServer(newJournal(t, ctx), &mockSummarizer{}))

		res, err := session.ListTools(ctx, nil)
		gt.NoError(t, err)
		names := map[string]bool{}
		for _, tool := range res.Tools {
			names[tool.Name] = true
		}
		gt.Map(t, names).HasKey("journal_list")
		gt.Map(t, names).HasKey("find_echo")
		gt.Map(t, names).HasKey("build_context")
	})

	t.Run("build_context is absent without summarizer", func(t *testing.T) {
		session := connect(t, ctx, mcp.NewServer(newJournal(t, ctx), nil))

		res, err := session.ListTools(ctx, nil)
		gt.NoError(t, err)
		gt.A(t, res.Tools).Length(2)
	})

	t.Run("journal_list", func(t *testing.T) {
		j := newJournal(t, ctx, "first question here", "second question here", "third question here")
		session := connect(t, ctx, mcp.NewServer(j, nil))

		all := callTool[mcp.JournalListResult](t, ctx, session, "journal_list", map[string]any{})
		gt.Equal(t, all.Total, 3)
		gt.A(t, all.Records).Length(3)
		gt.Equal(t, all.Records[0].Query, "third question here")

		limited := callTool[mcp.JournalListResult](t, ctx, session, "journal_list", map[string]any{"limit": 1})
		gt.Equal(t, limited.Total, 3)
		gt.A(t, limited.Records).Length(1)
	})

	t.Run("find_echo", func(t *testing.T) {
		j := newJournal(t, ctx, "What does my career hold next month?")
		session := connect(t, ctx, mcp.NewServer(j, nil))

		hit := callTool[mcp.FindEchoResult](t, ctx, session, "find_echo", map[string]any{
			"query": "What does my career hold this month?",
		})
		gt.True(t, hit.Found)
		gt.NotNil(t, hit.Record)
		gt.Equal(t, hit.Record.Query, "What does my career hold next month?")

		miss := callTool[mcp.FindEchoResult](t, ctx, session, "find_echo", map[string]any{
			"query": "hi",
		})
		gt.False(t, miss.Found)
		gt.True(t, miss.Record == nil)
	})

	t.Run("build_context", func(t *testing.T) {
		j := newJournal(t, ctx, "Will I travel soon?", "Should I move house?")
		summarizer := &mockSummarizer{
			summarizeFunc: func(ctx context.Context, text string) (string, error) {
				return "Thresholds recur.", nil
			},
		}
		session := connect(t, ctx, mcp.NewServer(j, summarizer))

		out := callTool[mcp.BuildContextResult](t, ctx, session, "build_context", map[string]any{})
		gt.Equal(t, out.Context, "Thresholds recur.")
	})

	t.Run("build_context degrades to empty", func(t *testing.T) {
		j := newJournal(t, ctx, "Will I travel soon?")
		session := connect(t, ctx, mcp.NewServer(j, &mockSummarizer{}))

		out := callTool[mcp.BuildContextResult](t, ctx, session, "build_context", map[string]any{"max_records": 5})
		gt.Equal(t, out.Context, "")
	})
}
