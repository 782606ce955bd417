package model

import "github.com/m-mizutani/goerr/v2"

// Tuning holds the knobs of echo detection and context assembly. The values
// are heuristics, not load-bearing behavior.
type Tuning struct {
	// EchoWindow is how many of the most recent records are compared
	EchoWindow int `yaml:"echo_window"`
	// EchoThreshold is the overlap ratio that must be exceeded
	EchoThreshold float64 `yaml:"echo_threshold"`
	// EchoMinTokenLen drops shorter tokens (filler words)
	EchoMinTokenLen int `yaml:"echo_min_token_len"`
	// EchoMinTokens is the smallest token set worth comparing
	EchoMinTokens int `yaml:"echo_min_tokens"`
	// EchoMinCommon must be exceeded by the shared token count
	EchoMinCommon int `yaml:"echo_min_common"`

	// ContextWindow is how many recent records feed the archetypal summary
	ContextWindow int `yaml:"context_window"`
}

// DefaultTuning returns the stock set of constants
func DefaultTuning() Tuning {
	return Tuning{
		EchoWindow:      5,
		EchoThreshold:   0.6,
		EchoMinTokenLen: 3,
		EchoMinTokens:   3,
		EchoMinCommon:   2,
		ContextWindow:   10,
	}
}

// Validate checks the values are usable
func (x Tuning) Validate() error {
	if x.EchoWindow < 0 {
		return goerr.New("echo_window must not be negative", goerr.V("echo_window", x.EchoWindow))
	}
	if x.EchoThreshold < 0 || x.EchoThreshold > 1 {
		return goerr.New("echo_threshold must be in [0, 1]", goerr.V("echo_threshold", x.EchoThreshold))
	}
	if x.EchoMinTokenLen < 1 {
		return goerr.New("echo_min_token_len must be positive", goerr.V("echo_min_token_len", x.EchoMinTokenLen))
	}
	if x.EchoMinTokens < 1 {
		return goerr.New("echo_min_tokens must be positive", goerr.V("echo_min_tokens", x.EchoMinTokens))
	}
	if x.EchoMinCommon < 0 {
		return goerr.New("echo_min_common must not be negative", goerr.V("echo_min_common", x.EchoMinCommon))
	}
	if x.ContextWindow < 0 {
		return goerr.New("context_window must not be negative", goerr.V("context_window", x.ContextWindow))
	}
	return nil
}
