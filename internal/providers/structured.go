package providers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// maxStructuredRepairAttempts limits self-repair round trips when a model
// reply cannot be parsed or validated.
const maxStructuredRepairAttempts = 2

// translationSchema is the reply shape requested from chat translators.
const translationSchema = `{
  "type": "object",
  "required": ["translation"],
  "properties": {
    "translation": {"type": "string"}
  },
  "additionalProperties": false
}`

type translationReply struct {
	Translation string `json:"translation"`
}

// compiledTranslationSchema is compiled once; the schema is a constant.
var compiledTranslationSchema = mustCompileSchema(translationSchema)

func mustCompileSchema(raw string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", strings.NewReader(raw)); err != nil {
		panic(fmt.Sprintf("failed to load schema: %v", err))
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		panic(fmt.Sprintf("failed to compile schema: %v", err))
	}
	return schema
}

// parseStructuredJSON parses JSON from model output, with lightweight recovery
// for markdown code fences and surrounding text.
func parseStructuredJSON(content string) (json.RawMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("empty structured output")
	}

	candidates := []string{content}
	if stripped := stripCodeFences(content); stripped != "" {
		candidates = append(candidates, stripped)
	}
	if extracted := extractJSONObject(content); extracted != "" {
		candidates = append(candidates, extracted)
	}

	for _, candidate := range candidates {
		if json.Valid([]byte(candidate)) {
			var buf bytes.Buffer
			if err := json.Compact(&buf, []byte(candidate)); err != nil {
				return nil, fmt.Errorf("failed to normalize structured output: %w", err)
			}
			return buf.Bytes(), nil
		}
	}
	return nil, fmt.Errorf("failed to parse structured JSON")
}

func stripCodeFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return ""
	}
	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return ""
	}
	lines = lines[1:]
	if strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func extractJSONObject(content string) string {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < start {
		return ""
	}
	return strings.TrimSpace(content[start : end+1])
}

// decodeTranslation parses and validates a translator reply.
func decodeTranslation(content string) (string, error) {
	parsed, err := parseStructuredJSON(content)
	if err != nil {
		return "", err
	}

	var doc any
	if err := json.Unmarshal(parsed, &doc); err != nil {
		return "", fmt.Errorf("failed to decode structured JSON for validation: %w", err)
	}
	if err := compiledTranslationSchema.Validate(doc); err != nil {
		return "", fmt.Errorf("structured output does not match schema: %w", err)
	}

	var reply translationReply
	if err := json.Unmarshal(parsed, &reply); err != nil {
		return "", fmt.Errorf("failed to decode translation: %w", err)
	}
	return reply.Translation, nil
}

func structuredRepairPrompt(lastOutput string, issue error) string {
	lastOutput = strings.TrimSpace(lastOutput)
	if len(lastOutput) > 12000 {
		lastOutput = lastOutput[:12000] + "\n...[truncated]"
	}

	return fmt.Sprintf(`Return ONLY valid JSON (no markdown, no commentary) that strictly conforms to this schema.

Schema:
%s

Your previous output:
%s

Validation issue:
%v`, translationSchema, lastOutput, issue)
}
