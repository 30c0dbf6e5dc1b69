package llm

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/invopop/jsonschema"
)

// Validator is implemented by structured outputs that check their own
// invariants after decoding.
type Validator interface {
	Validate() error
}

var reflector = jsonschema.Reflector{
	DoNotReference: true,
	ExpandedStruct: true,
	Anonymous:      true,
}

// SchemaFor reflects T into a JSON schema object suitable for tool parameters
// and response formats. Struct fields are described with `jsonschema` tags,
// e.g. `jsonschema:"description=City name,enum=metric,enum=imperial"`.
func SchemaFor[T any]() (map[string]any, error) {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	for typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("schema for %s: want a struct type", typ)
	}
	r := reflector
	if typ.Name() == "" {
		// expanding looks the root up by type name, which anonymous structs lack
		r.ExpandedStruct = false
	}
	return schemaMap(r.ReflectFromType(typ))
}

func schemaMap(s *jsonschema.Schema) (map[string]any, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}
	delete(out, "$schema")
	delete(out, "$id")
	if _, ok := out["properties"]; !ok {
		out["properties"] = map[string]any{}
	}
	out["type"] = "object"
	return out, nil
}

// StrictCompatible reports whether schema satisfies strict structured
// outputs: every object, nested ones included, lists all of its properties
// as required and forbids additional properties.
func StrictCompatible(schema map[string]any) bool {
	return strictNode(schema, true)
}

func strictNode(node map[string]any, root bool) bool {
	props, hasProps := node["properties"].(map[string]any)
	if hasProps || node["type"] == "object" {
		if ap, ok := node["additionalProperties"]; !root || ok {
			if ap != false {
				return false
			}
		}
		required := requiredSet(node["required"])
		for name, p := range props {
			if !required[name] {
				return false
			}
			if child, ok := p.(map[string]any); ok && !strictNode(child, false) {
				return false
			}
		}
	}
	if items, ok := node["items"].(map[string]any); ok && !strictNode(items, false) {
		return false
	}
	for _, key := range []string{"anyOf", "oneOf", "allOf"} {
		list, _ := node[key].([]any)
		for _, v := range list {
			if child, ok := v.(map[string]any); ok && !strictNode(child, false) {
				return false
			}
		}
	}
	return true
}

func requiredSet(v any) map[string]bool {
	required := map[string]bool{}
	switch r := v.(type) {
	case []any:
		for _, v := range r {
			if s, ok := v.(string); ok {
				required[s] = true
			}
		}
	case []string:
		for _, s := range r {
			required[s] = true
		}
	}
	return required
}

// ResponseFormatFor builds a json_schema response format for T. Strict mode
// is enabled when the schema allows it.
func ResponseFormatFor[T any](name string) (*ResponseFormat, error) {
	schema, err := SchemaFor[T]()
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = schemaName(reflect.TypeOf((*T)(nil)).Elem())
	}
	return &ResponseFormat{
		Type:   FormatJSONSchema,
		Name:   name,
		Schema: schema,
		Strict: StrictCompatible(schema),
	}, nil
}

func schemaName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	name := t.Name()
	if name == "" {
		return "output"
	}
	var b strings.Builder
	for i, r := range name {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte('_')
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}

// DecodeStructured parses JSON model output into T and runs Validate when T
// implements Validator.
func DecodeStructured[T any](content string) (T, error) {
	var out T
	if strings.TrimSpace(content) == "" {
		return out, NewLLMError("", ErrorTypeJSONParsingError, "empty structured output")
	}
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &out); err != nil {
		return out, NewLLMErrorWithCause("", ErrorTypeJSONParsingError, fmt.Sprintf("decode structured output: %v", err), err)
	}
	if v, ok := any(&out).(Validator); ok {
		if err := v.Validate(); err != nil {
			return out, fmt.Errorf("validate structured output: %w", err)
		}
	} else if v, ok := any(out).(Validator); ok {
		if err := v.Validate(); err != nil {
			return out, fmt.Errorf("validate structured output: %w", err)
		}
	}
	return out, nil
}

// stripCodeFence removes a ```json fence some providers wrap JSON in when
// structured output is requested through the prompt.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
