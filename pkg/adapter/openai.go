package adapter

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kairos/pkg/utils/logging"
	"github.com/openai/openai-go"
	oaioption "github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
)

const defaultOpenAIModel = "gpt-4.1-mini"

// OpenAIGenerator implements Generator with the OpenAI responses API and
// strict JSON schema output
type OpenAIGenerator struct {
	client     *openai.Client
	model      string
	maxRetries int
	retryWait  []time.Duration
}

type OpenAIOption func(*OpenAIGenerator)

func WithOpenAIModel(model string) OpenAIOption {
	return func(g *OpenAIGenerator) {
		if model != "" {
			g.model = model
		}
	}
}

// WithOpenAIRetryWait sets the wait before each retry. Its length bounds the
// number of retries.
func WithOpenAIRetryWait(waits ...time.Duration) OpenAIOption {
	return func(g *OpenAIGenerator) {
		g.retryWait = waits
		g.maxRetries = len(waits)
	}
}

func NewOpenAI(apiKey string, opts []oaioption.RequestOption, genOpts ...OpenAIOption) *OpenAIGenerator {
	reqOpts := append([]oaioption.RequestOption{oaioption.WithAPIKey(apiKey)}, opts...)
	client := openai.NewClient(reqOpts...)

	g := &OpenAIGenerator{
		client:     &client,
		model:      defaultOpenAIModel,
		maxRetries: 2,
		retryWait:  []time.Duration{5 * time.Second, 30 * time.Second},
	}
	for _, opt := range genOpts {
		opt(g)
	}
	return g
}

// openAISchema builds a strict-mode schema: every field required and no
// additional properties
func openAISchema(fields []Field) (map[string]any, error) {
	schema := &jsonschema.Schema{
		Type:                 "object",
		Properties:           jsonschema.NewProperties(),
		AdditionalProperties: jsonschema.FalseSchema,
	}
	for _, f := range fields {
		schema.Properties.Set(f.Name, &jsonschema.Schema{
			Type:        "string",
			Description: f.Description,
		})
		schema.Required = append(schema.Required, f.Name)
	}

	raw, err := schema.MarshalJSON()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal json schema")
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, goerr.Wrap(err, "failed to convert json schema")
	}
	return out, nil
}

func (g *OpenAIGenerator) Generate(ctx context.Context, req *GenerateRequest) (Fields, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	schema, err := openAISchema(req.Fields)
	if err != nil {
		return nil, err
	}

	params := responses.ResponseNewParams{
		Model: g.model,
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(req.Prompt, responses.EasyInputMessageRoleUser),
			},
		},
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Name:   req.Name,
					Schema: schema,
					Strict: openai.Bool(true),
					Type:   "json_schema",
				},
			},
		},
	}
	if req.Instruction != "" {
		params.Instructions = openai.String(req.Instruction)
	}

	logging.From(ctx).Debug("openai generate", "request", req.Name, "model", g.model)
	resp, err := g.callWithRetry(ctx, params)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate fields", goerr.V("request", req.Name))
	}

	fields, err := decodeFields(resp.OutputText())
	if err != nil {
		return nil, goerr.Wrap(err, "failed to decode openai output", goerr.V("request", req.Name))
	}
	return fields, nil
}

func (g *OpenAIGenerator) callWithRetry(ctx context.Context, params responses.ResponseNewParams) (*responses.Response, error) {
	for attempt := 0; ; attempt++ {
		resp, err := g.client.Responses.New(ctx, params)
		if err == nil {
			return resp, nil
		}
		if attempt >= g.maxRetries || !isRetryable(err) {
			return nil, err
		}

		wait := g.retryWait[attempt]
		logging.From(ctx).Warn("openai call failed, retrying", "attempt", attempt+1, "wait", wait, "error", err)
		select {
		case <-ctx.Done():
			return nil, goerr.Wrap(ctx.Err(), "canceled while waiting to retry")
		case <-time.After(wait):
		}
	}
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests") ||
		strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "internal server error") ||
		strings.Contains(errStr, "server_error")
}
