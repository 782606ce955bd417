package adapter

// Test helpers exposing private functions

var (
	DecodeFieldsForTest = decodeFields
	OpenAISchemaForTest = openAISchema
	GeminiSchemaForTest = geminiSchema
	IsRetryableForTest  = isRetryable
)
