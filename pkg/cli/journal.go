package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kairos/pkg/adapter"
	"github.com/m-mizutani/kairos/pkg/model"
	"github.com/m-mizutani/kairos/pkg/usecase/echo"
	"github.com/m-mizutani/kairos/pkg/usecase/memory"
	"github.com/urfave/cli/v3"
)

func journalCommand() *cli.Command {
	return &cli.Command{
		Name:  "journal",
		Usage: "Inspect and manage past readings",
		Commands: []*cli.Command{
			journalListCommand(),
			journalClearCommand(),
			journalReflectCommand(),
			journalLinkCommand(),
		},
	}
}

func journalListCommand() *cli.Command {
	var (
		cfg    config
		limit  int64
		asJSON bool
	)

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "limit",
			Aliases:     []string{"l"},
			Usage:       "Maximum number of records to list (0 for all)",
			Value:       20,
			Destination: &limit,
		},
		&cli.BoolFlag{
			Name:        "json",
			Usage:       "Print records as JSON",
			Destination: &asJSON,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "list",
		Usage: "List readings, newest first",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.withLogger(ctx)

			kv, closeKV, err := cfg.newKV(ctx)
			if err != nil {
				return err
			}
			defer closeKV()

			records, err := cfg.openJournal(ctx, kv).GetAll(ctx)
			if err != nil {
				return err
			}
			if limit > 0 && int64(len(records)) > limit {
				records = records[:limit]
			}

			w := c.Root().Writer
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				if err := enc.Encode(records); err != nil {
					return goerr.Wrap(err, "failed to encode records")
				}
				return nil
			}

			if len(records) == 0 {
				fmt.Fprintf(w, "The journal is empty\n")
				return nil
			}
			for _, r := range records {
				fmt.Fprintf(w, "%s\t%s\t%s\n", r.ID, r.CreatedAt.Format("2006-01-02 15:04"), r.Query)
				fmt.Fprintf(w, "\t%s\n", r.Summary)
			}
			return nil
		},
	}
}

func journalClearCommand() *cli.Command {
	var (
		cfg config
		yes bool
	)

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "yes",
			Aliases:     []string{"y"},
			Usage:       "Confirm deleting every reading",
			Destination: &yes,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "clear",
		Usage: "Delete every reading",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.withLogger(ctx)

			if !yes {
				return goerr.New("refusing to clear the journal without --yes")
			}

			kv, closeKV, err := cfg.newKV(ctx)
			if err != nil {
				return err
			}
			defer closeKV()

			if err := cfg.openJournal(ctx, kv).Clear(ctx); err != nil {
				return err
			}
			fmt.Fprintf(c.Root().Writer, "Journal cleared\n")
			return nil
		},
	}
}

func journalReflectCommand() *cli.Command {
	var cfg config

	flags := globalFlags(&cfg)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:  "reflect",
		Usage: "Distill archetypal patterns across the whole journal",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.withLogger(ctx)

			kv, closeKV, err := cfg.newKV(ctx)
			if err != nil {
				return err
			}
			defer closeKV()

			records, err := cfg.openJournal(ctx, kv).GetAll(ctx)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintf(c.Root().Writer, "The journal is empty\n")
				return nil
			}

			gen, err := cfg.newGenerator(ctx)
			if err != nil {
				return err
			}

			summary, err := memory.Summarize(ctx, adapter.NewSummarizer(gen), records)
			if err != nil {
				return goerr.Wrap(err, "failed to reflect on journal")
			}
			fmt.Fprintf(c.Root().Writer, "%s\n", summary)
			return nil
		},
	}
}

func journalLinkCommand() *cli.Command {
	var cfg config

	flags := globalFlags(&cfg)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:      "link",
		Usage:     "Find karmic echoes between two readings",
		ArgsUsage: "<record-id> <record-id>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.withLogger(ctx)

			if c.Args().Len() != 2 {
				return goerr.New("two record IDs are required", goerr.V("args", c.Args().Slice()))
			}

			kv, closeKV, err := cfg.newKV(ctx)
			if err != nil {
				return err
			}
			defer closeKV()

			j := cfg.openJournal(ctx, kv)
			first, err := j.Get(ctx, model.RecordID(c.Args().Get(0)))
			if err != nil {
				return err
			}
			second, err := j.Get(ctx, model.RecordID(c.Args().Get(1)))
			if err != nil {
				return err
			}

			gen, err := cfg.newGenerator(ctx)
			if err != nil {
				return err
			}

			analysis, err := echo.Link(ctx, gen, first, second)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.Root().Writer, "%s\n", analysis)
			return nil
		},
	}
}
