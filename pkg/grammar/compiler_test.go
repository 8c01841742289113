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
	"encoding/json"
	"regexp"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	generateapi "github.com/mfarre/text-generation-inference/pkg/generate-api"
)

const personSchema = `{
	"type": "object",
	"properties": {
		"name": {"type": "string"},
		"age": {"type": "integer"}
	}
}`

var _ = Describe("grammar compiler", func() {
	var compiler *Compiler

	BeforeEach(func() {
		compiler = NewCompiler(false, nil)
	})

	It("should compile a nil grammar to nil", func() {
		valid, err := compiler.Compile(nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(valid).To(BeNil())
	})

	It("should accept a regex grammar verbatim", func() {
		valid, err := compiler.Compile(&generateapi.GrammarType{
			Kind:  generateapi.GrammarKindRegex,
			Regex: `[a-z]+`,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(valid.Kind).To(Equal(generateapi.ValidGrammarKindRegex))
		Expect(valid.Regex).To(Equal(`[a-z]+`))
	})

	It("should compile a schema grammar into a matching regex", func() {
		valid, err := compiler.Compile(&generateapi.GrammarType{
			Kind: generateapi.GrammarKindJSON,
			JSON: json.RawMessage(personSchema),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(valid.Kind).To(Equal(generateapi.ValidGrammarKindSchemaRegex))

		re, compileErr := regexp.Compile("^" + valid.Regex + "$")
		Expect(compileErr).NotTo(HaveOccurred())
		Expect(re.MatchString(`{"name": "octocat", "age": 42}`)).To(BeTrue())
		Expect(re.MatchString(`{"age": 42, "name": "octocat"}`)).To(BeFalse())
		Expect(re.MatchString(`{"name": "octocat"}`)).To(BeFalse())
	})

	It("should accept a schema serialized inside a string", func() {
		payload, marshalErr := json.Marshal(personSchema)
		Expect(marshalErr).NotTo(HaveOccurred())

		valid, err := compiler.Compile(&generateapi.GrammarType{
			Kind: generateapi.GrammarKindJSON,
			JSON: payload,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(valid.Kind).To(Equal(generateapi.ValidGrammarKindSchemaRegex))
	})

	It("should reject a schema string that is not an object", func() {
		payload, marshalErr := json.Marshal(`[1, 2, 3]`)
		Expect(marshalErr).NotTo(HaveOccurred())

		_, err := compiler.Compile(&generateapi.GrammarType{
			Kind: generateapi.GrammarKindJSON,
			JSON: payload,
		})
		Expect(err).To(MatchError(ErrGrammarNotSupported))
	})

	It("should reject a schema without properties", func() {
		_, err := compiler.Compile(&generateapi.GrammarType{
			Kind: generateapi.GrammarKindJSON,
			JSON: json.RawMessage(`{"type": "object"}`),
		})
		var invalidErr *InvalidGrammarError
		Expect(err).To(BeAssignableToTypeOf(invalidErr))
		Expect(err.Error()).To(ContainSubstring("'properties'"))
	})

	It("should reject a structurally broken schema payload", func() {
		_, err := compiler.Compile(&generateapi.GrammarType{
			Kind: generateapi.GrammarKindJSON,
			JSON: json.RawMessage(`{"type":`),
		})
		var invalidErr *InvalidGrammarError
		Expect(err).To(BeAssignableToTypeOf(invalidErr))
	})

	It("should reject every grammar when support is disabled", func() {
		disabled := NewCompiler(true, nil)
		_, err := disabled.Compile(&generateapi.GrammarType{
			Kind:  generateapi.GrammarKindRegex,
			Regex: `[a-z]+`,
		})
		Expect(err).To(MatchError(ErrGrammarNotSupported))
	})

	It("should report transform failures with their cause", func() {
		_, err := compiler.Compile(&generateapi.GrammarType{
			Kind: generateapi.GrammarKindJSON,
			JSON: json.RawMessage(`{"properties": {"tag": {"type": ["string", "null"]}}}`),
		})
		var regexErr *SchemaRegexError
		Expect(err).To(BeAssignableToTypeOf(regexErr))
		Expect(err.Error()).To(ContainSubstring("cannot compile regex from schema"))
	})
})

var _ = Describe("built-in schema transform", func() {
	transform := DefaultTransform()

	It("should be versioned", func() {
		Expect(transform.Version()).To(Equal("builtin/v1"))
	})

	It("should emit scalar regexes", func() {
		regex, err := transform.Compile([]byte(`{"properties": {"done": {"type": "boolean"}}}`))
		Expect(err).NotTo(HaveOccurred())

		re, compileErr := regexp.Compile("^" + regex + "$")
		Expect(compileErr).NotTo(HaveOccurred())
		Expect(re.MatchString(`{"done": true}`)).To(BeTrue())
		Expect(re.MatchString(`{"done": "true"}`)).To(BeFalse())
	})

	It("should emit enums as alternations of their literals", func() {
		regex, err := transform.Compile([]byte(`{"properties": {"color": {"enum": ["red", "green"]}}}`))
		Expect(err).NotTo(HaveOccurred())

		re, compileErr := regexp.Compile("^" + regex + "$")
		Expect(compileErr).NotTo(HaveOccurred())
		Expect(re.MatchString(`{"color": "red"}`)).To(BeTrue())
		Expect(re.MatchString(`{"color": "blue"}`)).To(BeFalse())
	})

	It("should emit arrays with separator handling", func() {
		regex, err := transform.Compile([]byte(`{"properties": {"ids": {"type": "array", "items": {"type": "integer"}}}}`))
		Expect(err).NotTo(HaveOccurred())

		re, compileErr := regexp.Compile("^" + regex + "$")
		Expect(compileErr).NotTo(HaveOccurred())
		Expect(re.MatchString(`{"ids": []}`)).To(BeTrue())
		Expect(re.MatchString(`{"ids": [1, 2, 3]}`)).To(BeTrue())
		Expect(re.MatchString(`{"ids": [1,]}`)).To(BeFalse())
	})

	It("should keep nested object properties in schema order", func() {
		regex, err := transform.Compile([]byte(`{
			"properties": {
				"point": {
					"type": "object",
					"properties": {
						"x": {"type": "number"},
						"y": {"type": "number"}
					}
				}
			}
		}`))
		Expect(err).NotTo(HaveOccurred())

		re, compileErr := regexp.Compile("^" + regex + "$")
		Expect(compileErr).NotTo(HaveOccurred())
		Expect(re.MatchString(`{"point": {"x": 1.5, "y": 2.5}}`)).To(BeTrue())
		Expect(re.MatchString(`{"point": {"y": 2.5, "x": 1.5}}`)).To(BeFalse())
	})
})
