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

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Chunk is one typed piece of a multimodal prompt. The chunk sequence of a
// validated request preserves the left-to-right order of the original prompt.
type Chunk interface {
	appendMarkup(sb *strings.Builder)
}

// TextChunk is a run of plain prompt text
type TextChunk struct {
	Text string
}

// ImageChunk holds the raw bytes of one referenced image
type ImageChunk struct {
	Data     []byte
	Mimetype string
}

// VideoChunk holds the sampled RGB frames of one referenced video,
// concatenated in Data
type VideoChunk struct {
	Data      []byte
	Mimetype  string
	Width     uint32
	Height    uint32
	NumFrames uint32
}

func (c TextChunk) appendMarkup(sb *strings.Builder) {
	sb.WriteString(c.Text)
}

func (c ImageChunk) appendMarkup(sb *strings.Builder) {
	encoded := base64.StdEncoding.EncodeToString(c.Data)
	fmt.Fprintf(sb, "![](data:%s;base64,%s)", c.Mimetype, encoded)
}

func (c VideoChunk) appendMarkup(sb *strings.Builder) {
	encoded := base64.StdEncoding.EncodeToString(c.Data)
	fmt.Fprintf(sb, `<video width="%d"><source src="data:%s;base64,%s" type="%s"></video>`,
		c.Width, c.Mimetype, encoded, c.Mimetype)
}

// ChunksToString re-serializes a chunk sequence to the markup form, for
// backends that have not implemented chunked inputs
func ChunksToString(chunks []Chunk) string {
	var sb strings.Builder
	for _, chunk := range chunks {
		chunk.appendMarkup(&sb)
	}
	return sb.String()
}
