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
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const input = "The purple giraffe sang opera while riding a bicycle through the crowded market."

var _ = Describe("tokenizer", func() {

	It("should tokenize with the simple tokenizer", func() {
		tokenizer := NewSimpleTokenizer()
		encoding, err := tokenizer.Encode(input, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(encoding.InputIDs).NotTo(BeEmpty())
		Expect(encoding.Tokens).NotTo(BeEmpty())
		Expect(encoding.InputIDs).To(HaveLen(len(encoding.Tokens)))
		Expect(encoding.Len()).To(Equal(len(encoding.InputIDs)))

		output := strings.Join(encoding.Tokens, "")
		Expect(output).To(Equal(input))
	})

	It("should produce stable ids for the same input", func() {
		tokenizer := NewSimpleTokenizer()
		first, err := tokenizer.Encode(input, false)
		Expect(err).NotTo(HaveOccurred())
		second, err := tokenizer.Clone().Encode(input, true)
		Expect(err).NotTo(HaveOccurred())
		Expect(second.InputIDs).To(Equal(first.InputIDs))
	})

	It("should be shareable", func() {
		Expect(NewSimpleTokenizer().Shareable()).To(BeTrue())
	})

	It("should tokenize with the native tokenizer", func() {
		tokenizer, err := NewNativeTokenizer("cl100k_base")
		Expect(err).NotTo(HaveOccurred())
		Expect(tokenizer.Shareable()).To(BeTrue())

		encoding, err := tokenizer.Encode(input, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(encoding.InputIDs).NotTo(BeEmpty())
		Expect(encoding.Tokens).To(HaveLen(len(encoding.InputIDs)))
		Expect(encoding.Len()).To(Equal(len(encoding.InputIDs)))
	})

	It("should fail on an unknown encoding name", func() {
		_, err := NewNativeTokenizer("no-such-encoding")
		Expect(err).To(HaveOccurred())
	})
})
