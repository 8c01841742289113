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

package tokenizer

import (
	"errors"

	"github.com/pkoukk/tiktoken-go"
	tiktokenloader "github.com/pkoukk/tiktoken-go-loader"
)

// NativeTokenizer is an in-process BPE tokenizer. Encoding is read-only
// after construction, so clones may run in concurrent workers.
type NativeTokenizer struct {
	encoding *tiktoken.Tiktoken
	name     string
}

// NewNativeTokenizer creates a tokenizer for the given BPE encoding name,
// e.g. "cl100k_base", using the offline dictionary loader.
func NewNativeTokenizer(encodingName string) (*NativeTokenizer, error) {
	tiktoken.SetBpeLoader(tiktokenloader.NewOfflineLoader())
	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, errors.Join(err, errors.New("failed to load BPE encoding"))
	}
	return &NativeTokenizer{encoding: encoding, name: encodingName}, nil
}

func (nt *NativeTokenizer) Encode(input string, addSpecialTokens bool) (*Encoding, error) {
	var ids []int
	if addSpecialTokens {
		ids = nt.encoding.Encode(input, []string{"all"}, nil)
	} else {
		// special token text is encoded as ordinary text
		ids = nt.encoding.Encode(input, nil, nil)
	}

	inputIDs := make([]uint32, len(ids))
	tokens := make([]string, len(ids))
	for i, id := range ids {
		inputIDs[i] = uint32(id)
		tokens[i] = nt.encoding.Decode([]int{id})
	}
	return &Encoding{InputIDs: inputIDs, Tokens: tokens}, nil
}

func (nt *NativeTokenizer) Clone() Tokenizer {
	clone := *nt
	return &clone
}

func (nt *NativeTokenizer) Shareable() bool {
	return true
}
