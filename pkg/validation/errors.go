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

package validation

import (
	"errors"
	"fmt"
)

// Parameter range errors, returned before any tokenizer or media work
var (
	ErrBestOfSampling       = errors.New("you must use sampling when `best_of` is > 1")
	ErrBestOfSeed           = errors.New("`seed` must not be set when `best_of` > 1")
	ErrBestOfDisabled       = errors.New("`best_of` != 1 is not allowed for this endpoint")
	ErrTemperature          = errors.New("`temperature` must be strictly positive")
	ErrRepetitionPenalty    = errors.New("`repetition_penalty` must be strictly positive")
	ErrFrequencyPenalty     = errors.New("`frequency_penalty` must be >= -2.0 and <= 2.0")
	ErrTopP                 = errors.New("`top_p` must be > 0.0 and < 1.0")
	ErrTopK                 = errors.New("`top_k` must be strictly positive")
	ErrTypicalP             = errors.New("`typical_p` must be > 0.0 and < 1.0")
	ErrNegativeMaxNewTokens = errors.New("`max_new_tokens` must be strictly positive")
	ErrEmptyInput           = errors.New("`inputs` cannot be empty")
)

// BestOfError reports a best_of value above the configured maximum
type BestOfError struct {
	Max   int
	Given int
}

func (e *BestOfError) Error() string {
	return fmt.Sprintf("`best_of` must be > 0 and <= %d. Given: %d", e.Max, e.Given)
}

// TopNTokensError reports a top_n_tokens value above the configured maximum
type TopNTokensError struct {
	Max   uint32
	Given uint32
}

func (e *TopNTokensError) Error() string {
	return fmt.Sprintf("`top_n_tokens` must be >= 0 and <= %d. Given: %d", e.Max, e.Given)
}

// StopSequenceError reports too many stop sequences
type StopSequenceError struct {
	Max   int
	Given int
}

func (e *StopSequenceError) Error() string {
	return fmt.Sprintf("`stop` supports up to %d stop sequences. Given: %d", e.Max, e.Given)
}

// TruncateError reports a truncate value outside (0, max input length]
type TruncateError struct {
	Max   int
	Given int
}

func (e *TruncateError) Error() string {
	return fmt.Sprintf("`truncate` must be strictly positive and less than %d. Given: %d", e.Max, e.Given)
}

// MaxTotalTokensError reports a request whose input plus requested new
// tokens exceeds the total token budget
type MaxTotalTokensError struct {
	MaxTotalTokens int
	InputLength    int
	MaxNewTokens   uint32
}

func (e *MaxTotalTokensError) Error() string {
	return fmt.Sprintf("`inputs` tokens + `max_new_tokens` must be <= %d. Given: %d `inputs` tokens and %d `max_new_tokens`",
		e.MaxTotalTokens, e.InputLength, e.MaxNewTokens)
}

// InputLengthError reports an input longer than the input token budget
type InputLengthError struct {
	Max   int
	Given int
}

func (e *InputLengthError) Error() string {
	return fmt.Sprintf("`inputs` must have less than %d tokens. Given: %d", e.Max, e.Given)
}

// TokenizerError wraps a failure of the tokenizer capability
type TokenizerError struct {
	Message string
}

func (e *TokenizerError) Error() string {
	return fmt.Sprintf("tokenizer error %s", e.Message)
}
