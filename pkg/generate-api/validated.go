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

package generateapi

const (
	// ValidGrammarKindSchemaRegex is a regex compiled from a JSON-Schema grammar
	ValidGrammarKindSchemaRegex = "schema_regex"
	// ValidGrammarKindRegex is a user-supplied raw regex
	ValidGrammarKindRegex = "regex"
)

// ValidGrammar is a compiled grammar constraint, always a regex at this point
type ValidGrammar struct {
	Kind  string
	Regex string
}

// ValidParameters is the resolved, range-checked sampling configuration.
// Built once by validation and immutable afterwards.
type ValidParameters struct {
	// Temperature scales the output probability distribution
	Temperature float32
	// TopK restricts sampling to the k highest probability tokens, 0 disables
	TopK uint32
	// TopP restricts sampling to top tokens summing to at most top_p
	TopP float32
	// TypicalP is the typical decoding mass
	TypicalP float32
	// DoSample applies sampling on the logits
	DoSample bool
	// Seed for the random sampling
	Seed uint64
	// RepetitionPenalty penalizes repeated tokens
	RepetitionPenalty float32
	// FrequencyPenalty penalizes tokens by their frequency so far
	FrequencyPenalty float32
	// Watermark enables token watermarking
	Watermark bool
	// Grammar constrains decoding when non-nil
	Grammar *ValidGrammar
}

// ValidStoppingParameters is the resolved stopping configuration
type ValidStoppingParameters struct {
	// MaxNewTokens is the maximum number of generated tokens
	MaxNewTokens uint32
	// StopSequences stop generation when generated, in request order
	StopSequences []string
	// IgnoreEOSToken is reserved and always false at construction
	IgnoreEOSToken bool
}

// ValidGenerateRequest is a fully validated request, ready to schedule.
// Constructed exactly once per request and immutable afterwards.
type ValidGenerateRequest struct {
	// Inputs is the ordered chunk sequence of the prompt
	Inputs []Chunk
	// InputIDs are the token ids of the (possibly truncated) input, shared
	// with the scheduler; nil when the tokenizer could not return raw ids
	InputIDs []uint32
	// InputLength is the effective number of input tokens
	InputLength uint32
	// Truncate is the effective truncation length
	Truncate uint32
	// AddSpecialTokens defines whether special tokens were inserted
	AddSpecialTokens bool
	// DecoderInputDetails requests decoder input token details
	DecoderInputDetails bool
	// Parameters is the resolved sampling configuration
	Parameters ValidParameters
	// StoppingParameters is the resolved stopping configuration
	StoppingParameters ValidStoppingParameters
	// TopNTokens is the number of most likely tokens to return per position
	TopNTokens uint32
	// AdapterID selects a LoRA adapter
	AdapterID *string
}
