package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kairos/pkg/adapter"
	"github.com/m-mizutani/kairos/pkg/service/mcp"
	"github.com/m-mizutani/kairos/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func mcpCommand() *cli.Command {
	var (
		cfg       config
		addr      string
		summarize bool
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "http",
			Usage:       "Serve streamable HTTP on this address instead of stdio",
			Sources:     cli.EnvVars("KAIROS_MCP_ADDR"),
			Destination: &addr,
		},
		&cli.BoolFlag{
			Name:        "summarize",
			Usage:       "Offer the build_context tool (needs an LLM)",
			Destination: &summarize,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:  "mcp",
		Usage: "Expose the journal to MCP clients",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.withLogger(ctx)

			tuning, err := cfg.loadTuning()
			if err != nil {
				return err
			}

			kv, closeKV, err := cfg.newKV(ctx)
			if err != nil {
				return err
			}
			defer closeKV()

			var summarizer adapter.Summarizer
			if summarize {
				gen, err := cfg.newGenerator(ctx)
				if err != nil {
					return err
				}
				summarizer = adapter.NewSummarizer(gen)
			}

			srv := mcp.NewServer(cfg.openJournal(ctx, kv), summarizer, mcp.WithTuning(tuning))
			if addr == "" {
				return srv.Run(ctx)
			}

			httpServer := &http.Server{
				Addr:              addr,
				Handler:           srv.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			go func() {
				<-ctx.Done()
				_ = httpServer.Shutdown(context.Background())
			}()

			logging.From(ctx).Info("starting MCP server", "transport", "http", "addr", addr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return goerr.Wrap(err, "MCP server stopped", goerr.V("addr", addr))
			}
			return nil
		},
	}
}
