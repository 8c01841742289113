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

// Package grammar validates grammar constraints and compiles JSON-Schema
// grammars into regular expressions for constrained decoding. Building or
// executing the decoding automaton is the decoder's concern.
package grammar

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	generateapi "github.com/mfarre/text-generation-inference/pkg/generate-api"
)

const schemaResourceName = "grammar.json"

// ErrGrammarNotSupported rejects a grammar when grammar support is disabled
// by configuration, or when the grammar payload has an unsupported shape
var ErrGrammarNotSupported = errors.New("grammar is not supported")

// InvalidGrammarError reports a structurally invalid grammar
type InvalidGrammarError struct {
	Cause string
}

func (e *InvalidGrammarError) Error() string {
	return fmt.Sprintf("grammar is not valid: %s", e.Cause)
}

// SchemaRegexError reports a failure of the schema-to-regex transform
type SchemaRegexError struct {
	Cause string
}

func (e *SchemaRegexError) Error() string {
	return fmt.Sprintf("cannot compile regex from schema: %s", e.Cause)
}

// SchemaToRegex is the injected, versioned transform turning a validated
// JSON schema into an equivalent regular expression
type SchemaToRegex interface {
	Version() string
	Compile(schema []byte) (string, error)
}

// Compiler validates and compiles grammar constraints
type Compiler struct {
	disabled  bool
	transform SchemaToRegex
}

// NewCompiler creates a grammar compiler. A nil transform selects the
// built-in schema-to-regex transform.
func NewCompiler(disableGrammarSupport bool, transform SchemaToRegex) *Compiler {
	if transform == nil {
		transform = DefaultTransform()
	}
	return &Compiler{disabled: disableGrammarSupport, transform: transform}
}

// Compile turns a grammar constraint into a ValidGrammar. A nil grammar
// compiles to nil.
func (c *Compiler) Compile(g *generateapi.GrammarType) (*generateapi.ValidGrammar, error) {
	if g == nil {
		return nil, nil
	}
	if c.disabled {
		return nil, ErrGrammarNotSupported
	}

	switch g.Kind {
	case generateapi.GrammarKindRegex:
		// accepted verbatim, validity is the decoder's concern
		return &generateapi.ValidGrammar{
			Kind:  generateapi.ValidGrammarKindRegex,
			Regex: g.Regex,
		}, nil

	case generateapi.GrammarKindJSON:
		schema, err := normalizeSchema(g.JSON)
		if err != nil {
			return nil, err
		}

		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource(schemaResourceName, bytes.NewReader(schema)); err != nil {
			return nil, &InvalidGrammarError{Cause: err.Error()}
		}
		if _, err := compiler.Compile(schemaResourceName); err != nil {
			return nil, &InvalidGrammarError{Cause: err.Error()}
		}

		// the schema can be valid yet lack properties, and a schema without
		// declared properties cannot become a usable constraint downstream
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(schema, &fields); err != nil {
			return nil, &InvalidGrammarError{Cause: err.Error()}
		}
		if _, ok := fields["properties"]; !ok {
			return nil, &InvalidGrammarError{Cause: "Grammar must have a 'properties' field"}
		}

		regex, err := c.transform.Compile(schema)
		if err != nil {
			return nil, &SchemaRegexError{Cause: err.Error()}
		}
		return &generateapi.ValidGrammar{
			Kind:  generateapi.ValidGrammarKindSchemaRegex,
			Regex: regex,
		}, nil
	}

	return nil, ErrGrammarNotSupported
}

// normalizeSchema unpacks the grammar payload into schema bytes. A string
// payload is re-parsed to make sure it is valid JSON, anything but an
// object is rejected.
func normalizeSchema(raw json.RawMessage) ([]byte, error) {
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, &InvalidGrammarError{Cause: err.Error()}
	}

	switch v := value.(type) {
	case string:
		var inner any
		if err := json.Unmarshal([]byte(v), &inner); err != nil {
			return nil, &InvalidGrammarError{Cause: err.Error()}
		}
		if _, ok := inner.(map[string]any); !ok {
			return nil, ErrGrammarNotSupported
		}
		return []byte(v), nil
	case map[string]any:
		return raw, nil
	}
	return nil, ErrGrammarNotSupported
}
