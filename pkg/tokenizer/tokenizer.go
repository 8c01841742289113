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

// Package tokenizer defines the tokenizer capability consumed by the
// tokenization dispatch service, with a native in-process implementation and
// an external-runtime implementation restricted to a single worker.
package tokenizer

import (
	"hash/fnv"
	"regexp"
)

// Encoding is the result of tokenizing one input
type Encoding struct {
	// InputIDs are the raw token ids, nil when the implementation cannot
	// produce them
	InputIDs []uint32
	// Tokens are the string forms of the tokens
	Tokens []string
}

// Len returns the number of tokens in the encoding
func (e *Encoding) Len() int {
	if e.InputIDs != nil {
		return len(e.InputIDs)
	}
	return len(e.Tokens)
}

type Tokenizer interface {
	// Encode tokenizes the input. addSpecialTokens defines whether special
	// tokens in the input are encoded as such.
	Encode(input string, addSpecialTokens bool) (*Encoding, error)
	// Clone returns a tokenizer for exclusive use by a single worker
	Clone() Tokenizer
	// Shareable reports whether clones of this tokenizer may run in
	// concurrent workers. Must be decided at construction time.
	Shareable() bool
}

// SimpleTokenizer splits the input on words and punctuation and hashes the
// resulting strings into ids. It is deterministic and dependency free, and
// is the tokenizer used by the test suites.
type SimpleTokenizer struct {
	re *regexp.Regexp
}

func NewSimpleTokenizer() *SimpleTokenizer {
	return &SimpleTokenizer{
		re: regexp.MustCompile(`(\{|\}|:|,|-|\.|\?|\!|;|@|#|\$|%|\^|&|\*|\(|\)|\+|\-|_|~|/|\\|>|<|\[|\]|=|"|\||\w+)(\s*)`),
	}
}

func stringsToUint32sHash(strings []string) []uint32 {
	hashes := make([]uint32, len(strings))
	for i, s := range strings {
		h := fnv.New32a()
		h.Write([]byte(s))
		hashes[i] = h.Sum32()
	}
	return hashes
}

func (st *SimpleTokenizer) Encode(input string, _ bool) (*Encoding, error) {
	strTokens := st.re.FindAllString(input, -1)
	return &Encoding{
		InputIDs: stringsToUint32sHash(strTokens),
		Tokens:   strTokens,
	}, nil
}

func (st *SimpleTokenizer) Clone() Tokenizer {
	return NewSimpleTokenizer()
}

func (st *SimpleTokenizer) Shareable() bool {
	return true
}
