package adapter_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/kairos/pkg/adapter"
	oaioption "github.com/openai/openai-go/option"
)

const openAIResponseBody = `{
  "id": "resp_1",
  "object": "response",
  "created_at": 1760000000,
  "status": "completed",
  "model": "gpt-4.1-mini",
  "output": [
    {
      "type": "message",
      "id": "msg_1",
      "status": "completed",
      "role": "assistant",
      "content": [
        {
          "type": "output_text",
          "text": "{\"evolvedSeed\":\"Labyrinth key of moonlight\"}",
          "annotations": []
        }
      ]
    }
  ],
  "parallel_tool_calls": true,
  "tool_choice": "auto",
  "tools": [],
  "temperature": 1,
  "top_p": 1
}`

func TestOpenAISchema(t *testing.T) {
	schema, err := adapter.OpenAISchemaForTest([]adapter.Field{
		{Name: "evolvedSeed", Description: "new seed"},
		{Name: "reason", Description: "why"},
	})
	gt.NoError(t, err)
	gt.Equal(t, schema["type"], any("object"))
	gt.Equal(t, schema["additionalProperties"], any(false))

	required, ok := schema["required"].([]any)
	gt.True(t, ok)
	gt.A(t, required).Length(2)

	props, ok := schema["properties"].(map[string]any)
	gt.True(t, ok)
	gt.Map(t, props).HasKey("evolvedSeed")
	gt.Map(t, props).HasKey("reason")
}

func TestOpenAIGenerator(t *testing.T) {
	ctx := context.Background()
	req := &adapter.GenerateRequest{
		Name:        "EvolvedSeed",
		Instruction: "You are a generator of mystic symbols.",
		Prompt:      "Previous seed: Spiral staircase into mist",
		Fields:      []adapter.Field{{Name: "evolvedSeed", Description: "new seed"}},
	}

	t.Run("structured output", func(t *testing.T) {
		var body map[string]any
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(raw, &body)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(openAIResponseBody))
		}))
		defer srv.Close()

		gen := adapter.NewOpenAI("test-key",
			[]oaioption.RequestOption{oaioption.WithBaseURL(srv.URL + "/"), oaioption.WithMaxRetries(0)},
			adapter.WithOpenAIModel("gpt-4.1-mini"),
			adapter.WithOpenAIRetryWait(),
		)
		fields, err := gen.Generate(ctx, req)
		gt.NoError(t, err)
		gt.Equal(t, fields.Get("evolvedSeed"), "Labyrinth key of moonlight")

		gt.Equal(t, body["model"], any("gpt-4.1-mini"))
		gt.Equal(t, body["instructions"], any("You are a generator of mystic symbols."))
		text, ok := body["text"].(map[string]any)
		gt.True(t, ok)
		format, ok := text["format"].(map[string]any)
		gt.True(t, ok)
		gt.Equal(t, format["type"], any("json_schema"))
		gt.Equal(t, format["name"], any("EvolvedSeed"))
	})

	t.Run("api error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"message":"bad request","type":"invalid_request_error"}}`))
		}))
		defer srv.Close()

		gen := adapter.NewOpenAI("test-key",
			[]oaioption.RequestOption{oaioption.WithBaseURL(srv.URL + "/"), oaioption.WithMaxRetries(0)},
			adapter.WithOpenAIRetryWait(),
		)
		_, err := gen.Generate(ctx, req)
		gt.Error(t, err)
	})
}

func TestIsRetryable(t *testing.T) {
	gt.False(t, adapter.IsRetryableForTest(nil))
	gt.True(t, adapter.IsRetryableForTest(errors.New("429 Too Many Requests")))
	gt.True(t, adapter.IsRetryableForTest(errors.New("500 Internal Server Error")))
	gt.False(t, adapter.IsRetryableForTest(errors.New("invalid api key")))
}
