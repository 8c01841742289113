/*
Copyright 2025 The text-generation-inference Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package grammar

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const (
	// optional whitespace between JSON structural tokens
	ws = `[ ]?`

	stringRegex  = `"([^"\\]|\\.)*"`
	integerRegex = `(-)?(0|[1-9][0-9]*)`
	numberRegex  = `((-)?(0|[1-9][0-9]*))(\.[0-9]+)?([eE][+-][0-9]+)?`
	booleanRegex = `(true|false)`
	nullRegex    = `null`
)

// defaultTransform is the built-in schema-to-regex transform. It covers the
// object/array/scalar/enum subset of JSON Schema; declared properties are
// emitted in schema order and all treated as required.
type defaultTransform struct{}

// DefaultTransform returns the built-in schema-to-regex transform
func DefaultTransform() SchemaToRegex {
	return defaultTransform{}
}

func (defaultTransform) Version() string {
	return "builtin/v1"
}

func (defaultTransform) Compile(schema []byte) (string, error) {
	return schemaRegex(schema)
}

// member is one key/value pair of a JSON object, in document order
type member struct {
	key   string
	value json.RawMessage
}

// objectMembers decodes a JSON object preserving the document order of its
// keys, which encoding/json maps do not
func objectMembers(raw []byte) ([]member, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("schema node is not an object")
	}

	var members []member
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, errors.New("schema node has a non-string key")
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		members = append(members, member{key: key, value: value})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return members, nil
}

func memberValue(members []member, key string) (json.RawMessage, bool) {
	for _, m := range members {
		if m.key == key {
			return m.value, true
		}
	}
	return nil, false
}

func schemaRegex(raw []byte) (string, error) {
	members, err := objectMembers(raw)
	if err != nil {
		return "", err
	}

	if enumRaw, ok := memberValue(members, "enum"); ok {
		return enumRegex(enumRaw)
	}

	typeName := ""
	if typeRaw, ok := memberValue(members, "type"); ok {
		if err := json.Unmarshal(typeRaw, &typeName); err != nil {
			return "", fmt.Errorf("unsupported 'type' value: %s", typeRaw)
		}
	}

	switch typeName {
	case "string":
		return stringRegex, nil
	case "integer":
		return integerRegex, nil
	case "number":
		return numberRegex, nil
	case "boolean":
		return booleanRegex, nil
	case "null":
		return nullRegex, nil
	case "array":
		itemsRaw, ok := memberValue(members, "items")
		if !ok {
			return "", errors.New("array schema without 'items'")
		}
		return arrayRegex(itemsRaw)
	case "object", "":
		propertiesRaw, ok := memberValue(members, "properties")
		if !ok {
			return "", errors.New("object schema without 'properties'")
		}
		return propertiesRegex(propertiesRaw)
	}
	return "", fmt.Errorf("unsupported schema type %q", typeName)
}

func enumRegex(raw []byte) (string, error) {
	var literals []json.RawMessage
	if err := json.Unmarshal(raw, &literals); err != nil {
		return "", fmt.Errorf("unsupported 'enum' value: %w", err)
	}
	if len(literals) == 0 {
		return "", errors.New("empty 'enum'")
	}
	alternatives := make([]string, len(literals))
	for i, literal := range literals {
		compact := &bytes.Buffer{}
		if err := json.Compact(compact, literal); err != nil {
			return "", err
		}
		alternatives[i] = regexp.QuoteMeta(compact.String())
	}
	return "(" + strings.Join(alternatives, "|") + ")", nil
}

func arrayRegex(itemsRaw []byte) (string, error) {
	item, err := schemaRegex(itemsRaw)
	if err != nil {
		return "", err
	}
	return `\[` + ws + `((` + item + `)(` + ws + `,` + ws + `(` + item + `))*)?` + ws + `\]`, nil
}

func propertiesRegex(propertiesRaw []byte) (string, error) {
	properties, err := objectMembers(propertiesRaw)
	if err != nil {
		return "", err
	}
	if len(properties) == 0 {
		return "", errors.New("empty 'properties'")
	}

	parts := make([]string, len(properties))
	for i, property := range properties {
		valueRegex, err := schemaRegex(property.value)
		if err != nil {
			return "", err
		}
		parts[i] = regexp.QuoteMeta(fmt.Sprintf("%q", property.key)) + ws + `:` + ws + `(` + valueRegex + `)`
	}
	return `\{` + ws + strings.Join(parts, ws+`,`+ws) + ws + `\}`, nil
}
