package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/kairos/pkg/utils/logging"
)

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		level  string
		expect slog.Level
		fail   bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{" warning ", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}

	for _, tc := range testCases {
		t.Run(tc.level, func(t *testing.T) {
			lvl, err := logging.ParseLevel(tc.level)
			gt.Equal(t, lvl, tc.expect)
			if tc.fail {
				gt.Error(t, err)
			} else {
				gt.NoError(t, err)
			}
		})
	}
}

func TestNewFiltersByLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := logging.New("warn", buf)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	output := buf.String()
	gt.S(t, output).NotContains("debug message")
	gt.S(t, output).NotContains("info message")
	gt.S(t, output).Contains("warn message")
	gt.S(t, output).Contains("error message")
}

func TestNewInvalidLevelFallsBackToInfo(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := logging.New("invalid", buf)

	logger.Debug("debug message")
	logger.Info("info message")
	gt.S(t, buf.String()).NotContains("debug message")
	gt.S(t, buf.String()).Contains("info message")
}

func TestNewJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := logging.New("info", buf, logging.WithJSON())
	logger.Info("journal opened", "records", 3)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	gt.A(t, lines).Length(1)

	var entry map[string]any
	gt.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	gt.Equal(t, entry["msg"], any("journal opened"))
	gt.Equal(t, entry["records"], any(float64(3)))
}

func TestWithAndFrom(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := logging.New("debug", buf).With("component", "journal")

	ctx := logging.With(context.Background(), logger)
	retrieved := logging.From(ctx)
	gt.Equal(t, retrieved, logger)

	retrieved.Info("context message")
	gt.S(t, buf.String()).Contains("context message")
	gt.S(t, buf.String()).Contains("journal")
}

func TestFromUsesDefault(t *testing.T) {
	original := logging.Default()
	defer logging.SetDefault(original)

	buf := &bytes.Buffer{}
	customDefault := logging.New("warn", buf)
	logging.SetDefault(customDefault)

	retrieved := logging.From(context.Background())
	gt.Equal(t, retrieved, customDefault)

	retrieved.Warn("warning from default")
	gt.S(t, buf.String()).Contains("warning from default")
}
