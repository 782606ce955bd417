package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kairos/pkg/usecase/seed"
	"github.com/urfave/cli/v3"
)

func seedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "Manage the symbolic seed carried between readings",
		Commands: []*cli.Command{
			seedShowCommand(),
			seedSetCommand(),
			seedEvolveCommand(),
		},
	}
}

func seedShowCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:  "show",
		Usage: "Print the current seed",
		Flags: globalFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.withLogger(ctx)

			kv, closeKV, err := cfg.newKV(ctx)
			if err != nil {
				return err
			}
			defer closeKV()

			current := seed.NewHolder(ctx, kv).Current()
			if current == "" {
				fmt.Fprintf(c.Root().Writer, "No seed is held\n")
				return nil
			}
			fmt.Fprintf(c.Root().Writer, "%s\n", current)
			return nil
		},
	}
}

func seedSetCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:      "set",
		Usage:     "Plant a new seed",
		ArgsUsage: "<seed>",
		Flags:     globalFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.withLogger(ctx)

			value := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if value == "" {
				return goerr.New("seed is required")
			}

			kv, closeKV, err := cfg.newKV(ctx)
			if err != nil {
				return err
			}
			defer closeKV()

			if err := seed.NewHolder(ctx, kv).Set(ctx, value); err != nil {
				return err
			}
			fmt.Fprintf(c.Root().Writer, "Seed planted: %s\n", value)
			return nil
		},
	}
}

func seedEvolveCommand() *cli.Command {
	var (
		cfg     config
		summary string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "summary",
			Aliases:     []string{"s"},
			Usage:       "Reading summary to evolve from (default: the latest journal record)",
			Destination: &summary,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:  "evolve",
		Usage: "Evolve the current seed",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.withLogger(ctx)

			kv, closeKV, err := cfg.newKV(ctx)
			if err != nil {
				return err
			}
			defer closeKV()

			holder := seed.NewHolder(ctx, kv)
			if holder.Current() == "" {
				return goerr.New("no seed is held, plant one with `seed set`")
			}

			if summary == "" {
				records, err := cfg.openJournal(ctx, kv).GetAll(ctx)
				if err != nil {
					return err
				}
				if len(records) == 0 {
					return goerr.New("the journal is empty, pass --summary")
				}
				summary = records[0].Summary
			}

			gen, err := cfg.newGenerator(ctx)
			if err != nil {
				return err
			}

			previous := holder.Current()
			evolved, err := holder.Advance(ctx, gen, summary)
			if err != nil {
				return goerr.Wrap(err, "seed kept unchanged", goerr.V("seed", previous))
			}
			fmt.Fprintf(c.Root().Writer, "%s -> %s\n", previous, evolved)
			return nil
		},
	}
}
