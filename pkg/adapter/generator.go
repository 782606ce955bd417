package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// Field declares one string field of a structured generation result
type Field struct {
	Name        string
	Description string
}

// GenerateRequest is a single structured generation call
type GenerateRequest struct {
	// Name identifies the output shape, e.g. "EvolvedSeed". Used as the
	// schema name and in logs.
	Name        string
	Instruction string
	Prompt      string
	Fields      []Field
}

// Validate checks the request is complete
func (x *GenerateRequest) Validate() error {
	if x.Name == "" {
		return goerr.New("request name is required")
	}
	if strings.TrimSpace(x.Prompt) == "" {
		return goerr.New("prompt is required", goerr.V("request", x.Name))
	}
	if len(x.Fields) == 0 {
		return goerr.New("at least one output field is required", goerr.V("request", x.Name))
	}
	return nil
}

// Fields is a structured generation result keyed by field name
type Fields map[string]string

// Get returns the trimmed value of a field, "" when missing
func (f Fields) Get(name string) string {
	return strings.TrimSpace(f[name])
}

// Generator is the text generation collaborator: given a prompt it returns
// the requested string fields.
type Generator interface {
	Generate(ctx context.Context, req *GenerateRequest) (Fields, error)
}

// decodeFields unmarshals a model response into Fields. It tolerates text
// around the JSON object, which some models add despite a schema.
func decodeFields(outputText string) (Fields, error) {
	s := strings.TrimSpace(outputText)
	if s == "" {
		return nil, goerr.Wrap(io.ErrUnexpectedEOF, "empty model output")
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		start := strings.IndexByte(s, '{')
		end := strings.LastIndexByte(s, '}')
		if start == -1 || end == -1 || end <= start {
			return nil, goerr.New("no JSON object found in model output", goerr.V("length", len(s)))
		}
		if err := json.Unmarshal([]byte(s[start:end+1]), &raw); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal extracted JSON", goerr.V("length", end+1-start))
		}
	}

	fields := make(Fields, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case nil:
			continue
		case string:
			fields[k] = val
		default:
			fields[k] = fmt.Sprint(val)
		}
	}
	return fields, nil
}
