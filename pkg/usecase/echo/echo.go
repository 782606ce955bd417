package echo

import (
	"strings"
	"unicode"

	"github.com/m-mizutani/kairos/pkg/model"
)

type config struct {
	window    int
	threshold float64
	minLen    int
	minTokens int
	minCommon int
}

type Option func(*config)

// WithWindow sets how many of the most recent records are compared
func WithWindow(n int) Option {
	return func(c *config) {
		c.window = n
	}
}

// WithThreshold sets the overlap ratio a match must exceed
func WithThreshold(v float64) Option {
	return func(c *config) {
		c.threshold = v
	}
}

// WithTuning applies every echo parameter of t
func WithTuning(t model.Tuning) Option {
	return func(c *config) {
		c.window = t.EchoWindow
		c.threshold = t.EchoThreshold
		c.minLen = t.EchoMinTokenLen
		c.minTokens = t.EchoMinTokens
		c.minCommon = t.EchoMinCommon
	}
}

func newConfig(opts []Option) *config {
	c := &config{}
	WithTuning(model.DefaultTuning())(c)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FindEcho returns the most recent record, within the window, whose query
// overlaps candidate enough to count as asking the same thing again. It
// returns nil when there is none.
//
// past must be ordered newest first.
func FindEcho(candidate string, past []*model.Record, opts ...Option) *model.Record {
	cfg := newConfig(opts)

	a := cfg.tokenize(candidate)
	if len(a) < cfg.minTokens {
		return nil
	}

	n := min(cfg.window, len(past))
	for _, rec := range past[:max(n, 0)] {
		if rec == nil {
			continue
		}
		b := cfg.tokenize(rec.Query)
		if len(b) < cfg.minTokens {
			continue
		}

		common := 0
		for tok := range a {
			if _, ok := b[tok]; ok {
				common++
			}
		}
		ratio := float64(common) / float64(max(len(a), len(b)))

		if ratio > cfg.threshold && common > cfg.minCommon {
			return rec
		}
	}

	return nil
}

// tokenize lowercases s, drops punctuation and symbols, splits on
// whitespace and keeps the distinct tokens of at least minLen runes.
// "self-esteem" stays a single token.
func (c *config) tokenize(s string) map[string]struct{} {
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return -1
		}
		return r
	}, strings.ToLower(s))
	words := strings.Fields(stripped)

	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		if len([]rune(w)) < c.minLen {
			continue
		}
		set[w] = struct{}{}
	}
	return set
}
