package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kairos/pkg/usecase/focus"
	"github.com/m-mizutani/kairos/pkg/utils/clock"
	"github.com/urfave/cli/v3"
)

func focusCommand() *cli.Command {
	var (
		cfg  config
		date string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "date",
			Usage:       "Date in YYYY-MM-DD (default: today)",
			Destination: &date,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:  "focus",
		Usage: "Print the daily symbolic focus",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.withLogger(ctx)

			day := clock.Now(ctx)
			if date != "" {
				parsed, err := time.ParseInLocation("2006-01-02", date, time.Local)
				if err != nil {
					return goerr.Wrap(err, "invalid date", goerr.V("date", date))
				}
				day = parsed
			}

			kv, closeKV, err := cfg.newKV(ctx)
			if err != nil {
				return err
			}
			defer closeKV()

			gen, err := cfg.newGenerator(ctx)
			if err != nil {
				return err
			}

			today, err := focus.Today(ctx, gen, kv, day)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.Root().Writer, "%s: %s\n", day.Format("2006-01-02"), today)
			return nil
		},
	}
}
