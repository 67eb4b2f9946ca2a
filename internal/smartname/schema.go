package smartname

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// byONPattern admits "" (default behavior), "stored", "omit" and a whole
// percentage 0-100.
const byONPattern = `^(|stored|omit|100|[1-9]?[0-9])$`

var byONRe = regexp.MustCompile(byONPattern)

// validByON reports whether v is an accepted byON value.
func validByON(v string) bool {
	return byONRe.MatchString(v)
}

// patchSchemaDoc describes a smart-name patch body. byON also accepts an
// integer for clients that send the percentage unquoted.
const patchSchemaDoc = `{
	"type": "object",
	"additionalProperties": false,
	"properties": {
		"smartName":    {"type": ["string", "null"]},
		"byON": {
			"anyOf": [
				{"type": "null"},
				{"type": "string", "pattern": "` + byONPattern + `"},
				{"type": "integer", "minimum": 0, "maximum": 100}
			]
		},
		"smartType":    {"type": ["string", "null"]},
		"noAutoDetect": {"type": ["boolean", "null"]}
	}
}`

// attributesSchemaDoc constrains Google Home device attributes to an
// object with identifier-like keys.
const attributesSchemaDoc = `{
	"type": "object",
	"propertyNames": {"pattern": "^[A-Za-z][A-Za-z0-9_]*$"},
	"maxProperties": 64
}`

var (
	patchSchemaOnce sync.Once
	patchCompiled   *jsonschema.Schema

	attributesSchemaOnce sync.Once
	attributesCompiled   *jsonschema.Schema
)

func patchSchema() *jsonschema.Schema {
	patchSchemaOnce.Do(func() {
		patchCompiled = mustCompile("patch.json", patchSchemaDoc)
	})
	return patchCompiled
}

func attributesSchema() *jsonschema.Schema {
	attributesSchemaOnce.Do(func() {
		attributesCompiled = mustCompile("attributes.json", attributesSchemaDoc)
	})
	return attributesCompiled
}

// mustCompile compiles a built-in schema; a failure is a programming error.
func mustCompile(name, doc string) *jsonschema.Schema {
	var schemaMap any
	if err := json.Unmarshal([]byte(doc), &schemaMap); err != nil {
		panic(fmt.Sprintf("smartname: schema %s: %v", name, err))
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource(name, schemaMap); err != nil {
		panic(fmt.Sprintf("smartname: schema %s: %v", name, err))
	}
	compiled, err := c.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("smartname: schema %s: %v", name, err))
	}
	return compiled
}

// validateDocument parses body and checks it against schema. Parse errors
// and schema violations are both wrapped in sentinel.
func validateDocument(schema *jsonschema.Schema, body []byte, sentinel error) (any, error) {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", sentinel, err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %w", sentinel, err)
	}
	return doc, nil
}

// numericByONToString rewrites a numeric byON as its decimal string.
func numericByONToString(doc any) bool {
	m, ok := doc.(map[string]any)
	if !ok {
		return false
	}
	n, ok := m[KeyByON].(float64)
	if !ok {
		return false
	}
	m[KeyByON] = strconv.FormatFloat(n, 'f', -1, 64)
	return true
}

// parseAttributes checks Google Home attribute text. Text that does not
// parse as a JSON object yields ErrInvalidJSON; an object that breaks the
// schema yields ErrInvalidAttributes.
func parseAttributes(text string) (map[string]any, error) {
	var doc any
	dec := json.NewDecoder(strings.NewReader(text))
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidJSON, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data", ErrInvalidJSON)
	}
	attrs, ok := doc.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: attributes must be an object", ErrInvalidJSON)
	}
	if err := attributesSchema().Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAttributes, err)
	}
	return attrs, nil
}

// wrapPatchErr maps a decode error onto ErrInvalidPatch.
func wrapPatchErr(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return fmt.Errorf("%w: field %s: %w", ErrInvalidPatch, typeErr.Field, err)
	}
	return fmt.Errorf("%w: %w", ErrInvalidPatch, err)
}
