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

package media

import (
	"encoding/base64"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// 1x1 transparent gif
const pixelGIF = "R0lGODdhAQABAIEAAP///wAAAAAAAAAAACwAAAAAAQABAAAIBAABBAQAOw=="

var _ = Describe("image fetcher", func() {

	It("should decode a base64 data URI", func() {
		processed, err := FetchImage("![](data:image/gif;base64," + pixelGIF + ")")
		Expect(err).NotTo(HaveOccurred())
		Expect(processed.Mimetype).To(Equal("image/gif"))
		Expect(processed.Height).To(Equal(1))
		Expect(processed.Width).To(Equal(1))

		raw, err := base64.StdEncoding.DecodeString(pixelGIF)
		Expect(err).NotTo(HaveOccurred())
		Expect(processed.Data).To(Equal(raw))
	})

	It("should reject markup that is neither a URL nor a data URI", func() {
		_, err := FetchImage("![](scheme://bad)")
		var contentErr *InvalidImageContentError
		Expect(err).To(BeAssignableToTypeOf(contentErr))
		Expect(err.Error()).To(ContainSubstring("invalid image content"))
	})

	It("should reject a data URI without a base64 payload", func() {
		_, err := FetchImage("![](data:image/gif;hex,0011)")
		var contentErr *InvalidImageContentError
		Expect(err).To(BeAssignableToTypeOf(contentErr))
	})

	It("should reject a broken base64 payload", func() {
		_, err := FetchImage("![](data:image/gif;base64,not-base64!!!)")
		var b64Err *InvalidBase64Error
		Expect(err).To(BeAssignableToTypeOf(b64Err))
	})

	It("should reject bytes that do not decode as an image", func() {
		payload := base64.StdEncoding.EncodeToString([]byte("plain text"))
		_, err := FetchImage("![](data:image/gif;base64," + payload + ")")
		var imgErr *InvalidImageError
		Expect(err).To(BeAssignableToTypeOf(imgErr))
	})

	It("should report fetch failures for unreachable URLs", func() {
		_, err := FetchImage("![](http://127.0.0.1:1/pixel.gif)")
		var fetchErr *FetchError
		Expect(err).To(BeAssignableToTypeOf(fetchErr))
	})
})
