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
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("video fetcher", func() {

	Describe("source resolution", func() {
		It("should pass URLs straight through with an mp4 mimetype", func() {
			mimetype, sourcePath, cleanup, err := resolveVideoSource("<video>(https://example.com/clip.mp4)")
			Expect(err).NotTo(HaveOccurred())
			Expect(cleanup).To(BeNil())
			Expect(mimetype).To(Equal("video/mp4"))
			Expect(sourcePath).To(Equal("https://example.com/clip.mp4"))
		})

		It("should materialize a base64 payload into a temporary file", func() {
			// "dmlkZW8=" is the base64 form of "video"
			mimetype, sourcePath, cleanup, err := resolveVideoSource("<video>(data:video/mp4;base64,dmlkZW8=)")
			Expect(err).NotTo(HaveOccurred())
			Expect(cleanup).NotTo(BeNil())
			Expect(mimetype).To(Equal("video/mp4"))

			content, err := os.ReadFile(sourcePath)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(content)).To(Equal("video"))

			cleanup()
			_, err = os.Stat(sourcePath)
			Expect(os.IsNotExist(err)).To(BeTrue())
		})

		It("should reject markup that is neither a URL nor a data URI", func() {
			_, _, _, err := resolveVideoSource("<video>(file:///etc/passwd)")
			var contentErr *InvalidVideoContentError
			Expect(err).To(BeAssignableToTypeOf(contentErr))
		})

		It("should reject a broken base64 payload", func() {
			_, _, _, err := resolveVideoSource("<video>(data:video/mp4;base64,???)")
			var b64Err *InvalidBase64Error
			Expect(err).To(BeAssignableToTypeOf(b64Err))
		})
	})

	Describe("probing", func() {
		It("should report a tool failure for a missing source", func() {
			if _, err := os.Stat("/usr/bin/ffprobe"); err != nil {
				Skip("ffprobe is not installed")
			}
			_, _, err := probeVideo("/nonexistent/clip.mp4")
			var ffmpegErr *FFmpegError
			Expect(err).To(BeAssignableToTypeOf(ffmpegErr))
		})
	})
})
