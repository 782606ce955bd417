package adapter_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/kairos/pkg/adapter"
)

func TestDecodeFields(t *testing.T) {
	t.Run("plain json", func(t *testing.T) {
		fields, err := adapter.DecodeFieldsForTest(`{"evolvedSeed":"Ink spills on a frozen lake"}`)
		gt.NoError(t, err)
		gt.Equal(t, fields.Get("evolvedSeed"), "Ink spills on a frozen lake")
	})

	t.Run("json wrapped in prose", func(t *testing.T) {
		fields, err := adapter.DecodeFieldsForTest("Here you go:\n```json\n{\"dailyFocus\": \" Hidden Paths \"}\n```")
		gt.NoError(t, err)
		gt.Equal(t, fields.Get("dailyFocus"), "Hidden Paths")
	})

	t.Run("non string values", func(t *testing.T) {
		fields, err := adapter.DecodeFieldsForTest(`{"count": 3, "missing": null}`)
		gt.NoError(t, err)
		gt.Equal(t, fields.Get("count"), "3")
		_, ok := fields["missing"]
		gt.False(t, ok)
	})

	t.Run("empty output", func(t *testing.T) {
		_, err := adapter.DecodeFieldsForTest("   ")
		gt.Error(t, err)
	})

	t.Run("no object", func(t *testing.T) {
		_, err := adapter.DecodeFieldsForTest("the stars are silent")
		gt.Error(t, err)
	})
}

func TestGenerateRequestValidate(t *testing.T) {
	valid := adapter.GenerateRequest{
		Name:   "EvolvedSeed",
		Prompt: "evolve",
		Fields: []adapter.Field{{Name: "evolvedSeed"}},
	}
	gt.NoError(t, valid.Validate())

	noName := valid
	noName.Name = ""
	gt.Error(t, noName.Validate())

	noPrompt := valid
	noPrompt.Prompt = " "
	gt.Error(t, noPrompt.Validate())

	noFields := valid
	noFields.Fields = nil
	gt.Error(t, noFields.Validate())
}

func TestFieldsGet(t *testing.T) {
	fields := adapter.Fields{"a": "  x  "}
	gt.Equal(t, fields.Get("a"), "x")
	gt.Equal(t, fields.Get("b"), "")
}
