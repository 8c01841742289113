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
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/go-logr/logr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mfarre/text-generation-inference/pkg/tokenizer"
)

// trackingTokenizer counts how many encodes each of its clones performed
type trackingTokenizer struct {
	mu        sync.Mutex
	clones    []*trackingClone
	shareable bool
}

type trackingClone struct {
	inner   tokenizer.Tokenizer
	encodes atomic.Int64
}

func (t *trackingTokenizer) Encode(input string, addSpecialTokens bool) (*tokenizer.Encoding, error) {
	return nil, errors.New("the root tokenizer must not encode")
}

func (t *trackingTokenizer) Clone() tokenizer.Tokenizer {
	t.mu.Lock()
	defer t.mu.Unlock()
	clone := &trackingClone{inner: tokenizer.NewSimpleTokenizer()}
	t.clones = append(t.clones, clone)
	return clone
}

func (t *trackingTokenizer) Shareable() bool {
	return t.shareable
}

func (c *trackingClone) Encode(input string, addSpecialTokens bool) (*tokenizer.Encoding, error) {
	c.encodes.Add(1)
	if input == "boom" {
		panic("tokenizer blew up")
	}
	return c.inner.Encode(input, addSpecialTokens)
}

func (c *trackingClone) Clone() tokenizer.Tokenizer { return c }
func (c *trackingClone) Shareable() bool            { return true }

var _ = Describe("tokenize dispatch", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("should distribute requests evenly across workers", func() {
		tok := &trackingTokenizer{shareable: true}
		config := testConfig()
		config.TokenizeWorkers = 2

		validation, err := New(ctx, config, tok, nil, nil, nil, nil, logr.Discard())
		Expect(err).NotTo(HaveOccurred())

		for i := 0; i < 10; i++ {
			_, _, err := validation.Tokenize(ctx, "Hello", false)
			Expect(err).NotTo(HaveOccurred())
		}
		validation.Stop()

		Expect(tok.clones).To(HaveLen(2))
		Expect(tok.clones[0].encodes.Load()).To(Equal(int64(5)))
		Expect(tok.clones[1].encodes.Load()).To(Equal(int64(5)))
	})

	It("should force a single worker for a non-shareable tokenizer", func() {
		tok := &trackingTokenizer{shareable: false}
		config := testConfig()
		config.TokenizeWorkers = 4

		validation, err := New(ctx, config, tok, nil, nil, nil, nil, logr.Discard())
		Expect(err).NotTo(HaveOccurred())

		for i := 0; i < 6; i++ {
			_, _, err := validation.Tokenize(ctx, "Hello", false)
			Expect(err).NotTo(HaveOccurred())
		}
		validation.Stop()

		Expect(tok.clones).To(HaveLen(1))
		Expect(tok.clones[0].encodes.Load()).To(Equal(int64(6)))
	})

	It("should survive a panicking tokenizer call", func() {
		tok := &trackingTokenizer{shareable: true}
		validation, err := New(ctx, testConfig(), tok, nil, nil, nil, nil, logr.Discard())
		Expect(err).NotTo(HaveOccurred())
		defer validation.Stop()

		_, _, err = validation.Tokenize(ctx, "boom", false)
		var tokErr *TokenizerError
		Expect(err).To(BeAssignableToTypeOf(tokErr))
		Expect(err.Error()).To(ContainSubstring("tokenizer blew up"))

		// the same worker keeps serving
		encoding, _, err := validation.Tokenize(ctx, "Hello", false)
		Expect(err).NotTo(HaveOccurred())
		Expect(encoding.Len()).To(Equal(1))
	})

	It("should wrap tokenizer failures without killing the worker", func() {
		validation, err := New(ctx, testConfig(), &failingTokenizer{}, nil, nil, nil, nil, logr.Discard())
		Expect(err).NotTo(HaveOccurred())
		defer validation.Stop()

		_, _, tokenizeErr := validation.Tokenize(ctx, "Hello", false)
		Expect(tokenizeErr).To(MatchError("tokenizer error vocabulary not loaded"))
	})
})

type failingTokenizer struct{}

func (f *failingTokenizer) Encode(string, bool) (*tokenizer.Encoding, error) {
	return nil, errors.New("vocabulary not loaded")
}

func (f *failingTokenizer) Clone() tokenizer.Tokenizer { return f }
func (f *failingTokenizer) Shareable() bool            { return true }
