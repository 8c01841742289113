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

// Package preprocessing rewrites a multimodal prompt into a tokenizer query
// with model-family-specific placeholder tokens, and produces the ordered
// chunk sequence of the prompt.
package preprocessing

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	generateapi "github.com/mfarre/text-generation-inference/pkg/generate-api"
	"github.com/mfarre/text-generation-inference/pkg/media"
)

const (
	ideficsImageToken = "<image>"
	mllamaImageToken  = "<|image|>"
	fakeToken         = "<fake_token_around_image>"
	visionStartToken  = "<|vision_start|>"
	visionEndToken    = "<|vision_end|>"
	imagePadToken     = "<|image_pad|>"
	videoPadToken     = "<|video_pad|>"

	// idefics2 split mode expands every image into 5 sub-images
	imageSplitFactor = 5

	qwenMinVideoFrames = 2
	qwenMaxVideoFrames = 256
	// divisor mapping frame volume to video placeholder count
	qwenVideoTokenDivisor = 1541

	defaultVideoTargetWidth  = 224
	defaultVideoTargetHeight = 224
	qwenVideoTargetWidth     = 360
	qwenVideoTargetHeight    = 420
)

var (
	imageMarkupRE = regexp.MustCompile(`!\[\]\([^)]*\)`)
	videoMarkupRE = regexp.MustCompile(`<video>\((?:https?://[^)]+|data:[^)]+)\)`)
)

// fetchers are package variables so tests can stub media access
var (
	fetchImage = media.FetchImage
	fetchVideo = media.FetchVideo
)

// UnsupportedModalityError is a hard stop: an unexpected placeholder shape
// would corrupt downstream position accounting
type UnsupportedModalityError struct {
	Modality string
}

func (e *UnsupportedModalityError) Error() string {
	return fmt.Sprintf("%s modality is not supported", e.Modality)
}

type mediaKind int

const (
	kindVideo mediaKind = iota
	kindImage
)

type mediaMatch struct {
	kind       mediaKind
	start, end int
}

// BuildPrompt rewrites the prompt into the tokenizer query and the ordered
// chunk sequence. With no model config the result is the identity: one text
// chunk equal to the whole input.
func BuildPrompt(inputs string, config *ModelConfig, preprocessorConfig *PreprocessorConfig) (string, []generateapi.Chunk, error) {
	if !config.VisionCapable() {
		if config != nil && containsMediaMarkup(inputs) {
			return "", nil, &UnsupportedModalityError{Modality: "multimodal"}
		}
		return inputs, []generateapi.Chunk{generateapi.TextChunk{Text: inputs}}, nil
	}

	// video markers are consumed first, the two patterns cannot overlap
	matches := make([]mediaMatch, 0)
	for _, loc := range videoMarkupRE.FindAllStringIndex(inputs, -1) {
		matches = append(matches, mediaMatch{kind: kindVideo, start: loc[0], end: loc[1]})
	}
	for _, loc := range imageMarkupRE.FindAllStringIndex(inputs, -1) {
		matches = append(matches, mediaMatch{kind: kindImage, start: loc[0], end: loc[1]})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].start < matches[j].start })

	chunks := make([]generateapi.Chunk, 0, 2*len(matches)+1)
	var query strings.Builder
	query.Grow(len(inputs))
	start := 0

	for _, match := range matches {
		if match.start != start {
			chunks = append(chunks, generateapi.TextChunk{Text: inputs[start:match.start]})
			query.WriteString(inputs[start:match.start])
		}

		switch match.kind {
		case kindVideo:
			targetWidth, targetHeight := videoTargetBox(config)
			processed, err := fetchVideo(inputs[match.start:match.end], targetWidth, targetHeight)
			if err != nil {
				return "", nil, err
			}
			data := make([]byte, 0, len(processed.Frames)*int(targetWidth)*int(targetHeight)*3)
			for _, frame := range processed.Frames {
				data = append(data, frame...)
			}
			chunks = append(chunks, generateapi.VideoChunk{
				Data:      data,
				Mimetype:  processed.Mimetype,
				Width:     processed.Width,
				Height:    processed.Height,
				NumFrames: uint32(len(processed.Frames)),
			})
			tokens, err := videoTokens(config, processed.Height, processed.Width, float64(processed.SampledFrames))
			if err != nil {
				return "", nil, err
			}
			query.WriteString(tokens)

		case kindImage:
			processed, err := fetchImage(inputs[match.start:match.end])
			if err != nil {
				return "", nil, err
			}
			chunks = append(chunks, generateapi.ImageChunk{
				Data:     processed.Data,
				Mimetype: processed.Mimetype,
			})
			tokens, err := imageTokens(config, preprocessorConfig, processed.Height, processed.Width)
			if err != nil {
				return "", nil, err
			}
			query.WriteString(tokens)
		}
		start = match.end
	}

	if start != len(inputs) {
		chunks = append(chunks, generateapi.TextChunk{Text: inputs[start:]})
		query.WriteString(inputs[start:])
	}

	return imageTokensFixup(config, query.String()), chunks, nil
}

func containsMediaMarkup(inputs string) bool {
	return videoMarkupRE.MatchString(inputs) || imageMarkupRE.MatchString(inputs)
}

func videoTargetBox(config *ModelConfig) (width, height uint32) {
	if config.Family == FamilyQwen2VL {
		return qwenVideoTargetWidth, qwenVideoTargetHeight
	}
	return defaultVideoTargetWidth, defaultVideoTargetHeight
}

// imageTokens returns the placeholder expansion for one image of the given
// geometry
func imageTokens(config *ModelConfig, preprocessorConfig *PreprocessorConfig, height, width int) (string, error) {
	switch config.Family {
	case FamilyIdefics:
		return ideficsImageToken, nil
	case FamilyMllama:
		return mllamaImageToken, nil
	case FamilyIdefics2:
		slots := config.NumFeatures(height, width)
		var sb strings.Builder
		sb.Grow(2*len(fakeToken) + slots*len(ideficsImageToken))
		sb.WriteString(fakeToken)
		sb.WriteString(strings.Repeat(ideficsImageToken, slots))
		sb.WriteString(fakeToken)
		expansion := sb.String()
		if preprocessorConfig != nil && preprocessorConfig.DoImageSplitting {
			expansion = strings.Repeat(expansion, imageSplitFactor)
		}
		return expansion, nil
	case FamilyPaligemma, FamilyLlavaNext:
		return strings.Repeat(ideficsImageToken, config.NumFeatures(height, width)), nil
	case FamilyQwen2VL:
		return visionStartToken + strings.Repeat(imagePadToken, config.NumFeatures(height, width)) + visionEndToken, nil
	}
	return "", &UnsupportedModalityError{Modality: "images"}
}

// videoTokens returns the placeholder expansion for one video, estimated
// from the sampled frame count and target geometry
func videoTokens(config *ModelConfig, height, width uint32, sampledFrames float64) (string, error) {
	switch config.Family {
	case FamilyQwen2VL:
		// clamp the frames into range and round to even
		nframes := math.Min(math.Max(sampledFrames, qwenMinVideoFrames), qwenMaxVideoFrames)
		evenFrames := int(math.Round(nframes/2)) * 2
		numTokens := evenFrames * int(height) * int(width) / qwenVideoTokenDivisor
		return visionStartToken + strings.Repeat(videoPadToken, numTokens) + visionEndToken, nil
	}
	return "", &UnsupportedModalityError{Modality: "videos"}
}

// imageTokensFixup collapses doubled boundary markers produced by
// back-to-back images. Applied once to the final query, idempotent.
func imageTokensFixup(config *ModelConfig, text string) string {
	if config.Family == FamilyIdefics2 {
		return strings.ReplaceAll(text, fakeToken+fakeToken, fakeToken)
	}
	return text
}
