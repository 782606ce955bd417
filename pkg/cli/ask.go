package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/chzyer/readline"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kairos/pkg/adapter"
	"github.com/m-mizutani/kairos/pkg/model"
	"github.com/m-mizutani/kairos/pkg/repository"
	"github.com/m-mizutani/kairos/pkg/usecase/divination"
	"github.com/m-mizutani/kairos/pkg/usecase/focus"
	"github.com/m-mizutani/kairos/pkg/usecase/seed"
	"github.com/m-mizutani/kairos/pkg/utils/clock"
	"github.com/m-mizutani/kairos/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func askCommand() *cli.Command {
	var (
		cfg           config
		force         bool
		noFocus       bool
		interactive   bool
		anchorDate    string
		anchorFeeling string
	)

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "force",
			Aliases:     []string{"f"},
			Usage:       "Ask even if the question echoes a recent one",
			Destination: &force,
		},
		&cli.BoolFlag{
			Name:        "no-focus",
			Usage:       "Do not consult the daily symbolic focus",
			Sources:     cli.EnvVars("KAIROS_NO_FOCUS"),
			Destination: &noFocus,
		},
		&cli.BoolFlag{
			Name:        "interactive",
			Aliases:     []string{"i"},
			Usage:       "Keep asking questions in a prompt loop",
			Destination: &interactive,
		},
		&cli.StringFlag{
			Name:        "anchor-date",
			Usage:       "A date or moment you feel is significant (e.g. 2024-03-21T06:00)",
			Destination: &anchorDate,
		},
		&cli.StringFlag{
			Name:        "anchor-feeling",
			Usage:       "A temporal feeling, e.g. \"the dawn of a new project\"",
			Destination: &anchorFeeling,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:      "ask",
		Usage:     "Ask the oracle a question",
		ArgsUsage: "[question]",
		Flags:     flags,
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

			gen, err := cfg.newGenerator(ctx)
			if err != nil {
				return err
			}

			j := cfg.openJournal(ctx, kv)
			uc := divination.New(j, gen, adapter.NewSummarizer(gen),
				divination.WithSeedHolder(seed.NewHolder(ctx, kv)),
				divination.WithTuning(tuning),
			)

			s := &asker{
				uc:  uc,
				gen: gen,
				kv:  kv,
				w:   c.Root().Writer,
				base: divination.Input{
					AnchorDate:    optionalFlag(anchorDate),
					AnchorFeeling: optionalFlag(anchorFeeling),
				},
				noFocus: noFocus,
			}

			query := strings.Join(c.Args().Slice(), " ")
			if interactive || query == "" {
				return s.loop(ctx)
			}
			return s.once(ctx, query, force)
		},
	}
}

func optionalFlag(v string) *string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return model.Ptr(v)
}

type asker struct {
	uc      *divination.UseCase
	gen     adapter.Generator
	kv      repository.KV
	w       io.Writer
	base    divination.Input
	noFocus bool
}

func (s *asker) input(ctx context.Context, query string, force bool) divination.Input {
	in := s.base
	in.Query = query
	in.Force = force

	if !s.noFocus {
		today, err := focus.Today(ctx, s.gen, s.kv, clock.Now(ctx))
		if err != nil {
			logging.From(ctx).Warn("proceeding without daily focus", "error", err)
		} else {
			in.DailyFocus = model.Ptr(today)
		}
	}
	return in
}

func (s *asker) divine(ctx context.Context, in divination.Input) (*divination.Reading, error) {
	sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	sp.Suffix = " consulting the currents..."
	sp.Start()
	defer sp.Stop()

	return s.uc.Divine(ctx, in)
}

func (s *asker) once(ctx context.Context, query string, force bool) error {
	reading, err := s.divine(ctx, s.input(ctx, query, force))
	if err != nil {
		var echo *divination.EchoDetected
		if errors.As(err, &echo) {
			printEcho(s.w, echo.Past)
			fmt.Fprintf(s.w, "Run again with --force to ask anyway.\n")
			return nil
		}
		return goerr.Wrap(err, "failed to divine", goerr.V("query", query))
	}

	printReading(s.w, reading)
	return nil
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".kairos", "history")
}

func (s *asker) loop(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "✶ ",
		HistoryFile:     historyFile(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		Stdout:          s.w,
	})
	if err != nil {
		return goerr.Wrap(err, "failed to start prompt")
	}
	defer rl.Close()

	fmt.Fprintf(s.w, "Ask your question. Type 'exit' to quit.\n")

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return goerr.Wrap(err, "failed to read input")
		}

		query := strings.TrimSpace(line)
		if query == "exit" || query == "quit" {
			return nil
		}
		if query == "" {
			continue
		}

		reading, err := s.divine(ctx, s.input(ctx, query, false))
		var echo *divination.EchoDetected
		if errors.As(err, &echo) {
			printEcho(s.w, echo.Past)
			if !s.confirm(rl, "Ask anyway? [y/N] ") {
				continue
			}
			reading, err = s.divine(ctx, s.input(ctx, query, true))
		}
		if err != nil {
			// one failed question does not end the session
			logging.From(ctx).Error("divination failed", "error", err)
			fmt.Fprintf(s.w, "The currents are turbulent. Try again.\n")
			continue
		}

		printReading(s.w, reading)
	}
}

func (s *asker) confirm(rl *readline.Instance, prompt string) bool {
	rl.SetPrompt(prompt)
	defer rl.SetPrompt("✶ ")

	answer, err := rl.Readline()
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func printEcho(w io.Writer, past *model.Record) {
	fmt.Fprintf(w, "This question echoes one you asked on %s:\n", past.CreatedAt.Format("January 2, 2006"))
	fmt.Fprintf(w, "  Query: %s\n", past.Query)
	fmt.Fprintf(w, "  Insight: %s\n", past.Summary)
}

func printReading(w io.Writer, r *divination.Reading) {
	sections := []struct {
		title string
		body  string
	}{
		{"", r.Prelude},
		{"Astrology", r.AstrologyInsight},
		{"Alchemy", r.AlchemicalReflection},
		{"Spread", r.DivinationSpread},
		{"Psionic flash", r.PsionicFlash},
		{"Signatures", r.SymbolicSignatures},
		{"Guidance", r.Guidance},
		{"", r.FinalWord},
	}

	for _, sec := range sections {
		if sec.body == "" {
			continue
		}
		if sec.title != "" {
			fmt.Fprintf(w, "## %s\n", sec.title)
		}
		fmt.Fprintf(w, "%s\n\n", sec.body)
	}

	fmt.Fprintf(w, "Journal: %s\n", r.Record.Summary)
	if v := model.Deref(r.Record.VisualizationSeed); v != "" {
		fmt.Fprintf(w, "Visualization seed: %s\n", v)
	}
	if v := model.Deref(r.Record.AuraSeed); v != "" {
		fmt.Fprintf(w, "Aura palette: %s\n", v)
	}
	if r.NextSeed != "" {
		fmt.Fprintf(w, "Next symbolic seed: %s\n", r.NextSeed)
	}
}
