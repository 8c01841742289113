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

// Contains structures related to raw generation requests as received from
// the front end. A GenerateRequest is immutable once received, validation
// produces a ValidGenerateRequest from it.
package generateapi

import (
	"encoding/json"
	"fmt"
)

// GenerateRequest is a raw, not yet validated generation request
type GenerateRequest struct {
	// Inputs is the free-form prompt, possibly embedding image and video markup
	Inputs string `json:"inputs"`
	// AddSpecialTokens defines whether special tokens are inserted during tokenization
	AddSpecialTokens bool `json:"add_special_tokens"`
	// Parameters is the sampling and stopping parameters bag
	Parameters GenerateParameters `json:"parameters"`
}

// GenerateParameters holds the user-supplied sampling knobs, nil means unset
type GenerateParameters struct {
	// BestOf is the number of sequences to generate, returning the best one
	BestOf *int `json:"best_of,omitempty"`
	// Temperature scales the output probability distribution, must be strictly positive
	Temperature *float32 `json:"temperature,omitempty"`
	// RepetitionPenalty must be strictly positive
	RepetitionPenalty *float32 `json:"repetition_penalty,omitempty"`
	// FrequencyPenalty must be in [-2.0, 2.0]
	FrequencyPenalty *float32 `json:"frequency_penalty,omitempty"`
	// TopK restricts sampling to the k highest probability tokens
	TopK *int32 `json:"top_k,omitempty"`
	// TopP restricts sampling to the top tokens summing to at most top_p, must be in (0, 1)
	TopP *float32 `json:"top_p,omitempty"`
	// TypicalP is the typical decoding mass, must be in (0, 1)
	TypicalP *float32 `json:"typical_p,omitempty"`
	// DoSample activates logits sampling
	DoSample bool `json:"do_sample"`
	// MaxNewTokens is the maximum number of generated tokens
	MaxNewTokens *uint32 `json:"max_new_tokens,omitempty"`
	// Stop contains sequences that stop generation when generated
	Stop []string `json:"stop,omitempty"`
	// Truncate the input to this number of tokens
	Truncate *int `json:"truncate,omitempty"`
	// Seed for the random sampling
	Seed *uint64 `json:"seed,omitempty"`
	// Watermark enables token watermarking
	Watermark bool `json:"watermark"`
	// DecoderInputDetails requests the decoder input token details in the response
	DecoderInputDetails bool `json:"decoder_input_details"`
	// TopNTokens requests the n most likely tokens at each position
	TopNTokens *uint32 `json:"top_n_tokens,omitempty"`
	// Grammar constrains the generated output
	Grammar *GrammarType `json:"grammar,omitempty"`
	// AdapterID selects a LoRA adapter
	AdapterID *string `json:"adapter_id,omitempty"`
}

// DefaultParameters returns a parameters bag with every knob unset
func DefaultParameters() GenerateParameters {
	return GenerateParameters{}
}

const (
	GrammarKindJSON  = "json"
	GrammarKindRegex = "regex"
)

// GrammarType is a tagged union over the supported grammar constraint kinds,
// serialized as {"type": "json"|"regex", "value": ...}
type GrammarType struct {
	// Kind is one of GrammarKindJSON, GrammarKindRegex
	Kind string
	// JSON holds the schema for the json kind, either an object or a string
	// containing a serialized object
	JSON json.RawMessage
	// Regex holds the raw regex for the regex kind
	Regex string
}

type grammarEnvelope struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

func (g *GrammarType) UnmarshalJSON(data []byte) error {
	var envelope grammarEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return err
	}
	switch envelope.Type {
	case GrammarKindJSON:
		g.Kind = GrammarKindJSON
		g.JSON = envelope.Value
	case GrammarKindRegex:
		g.Kind = GrammarKindRegex
		var regex string
		if err := json.Unmarshal(envelope.Value, &regex); err != nil {
			return err
		}
		g.Regex = regex
	default:
		return fmt.Errorf("unknown grammar type '%s'", envelope.Type)
	}
	return nil
}

func (g GrammarType) MarshalJSON() ([]byte, error) {
	switch g.Kind {
	case GrammarKindJSON:
		return json.Marshal(grammarEnvelope{Type: GrammarKindJSON, Value: g.JSON})
	case GrammarKindRegex:
		value, err := json.Marshal(g.Regex)
		if err != nil {
			return nil, err
		}
		return json.Marshal(grammarEnvelope{Type: GrammarKindRegex, Value: value})
	}
	return nil, fmt.Errorf("unknown grammar type '%s'", g.Kind)
}
