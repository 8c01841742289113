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

package preprocessing

// ModelFamily identifies the model architecture family, which decides the
// placeholder token expansion for multimodal content
type ModelFamily string

const (
	FamilyIdefics   ModelFamily = "idefics"
	FamilyMllama    ModelFamily = "mllama"
	FamilyIdefics2  ModelFamily = "idefics2"
	FamilyPaligemma ModelFamily = "paligemma"
	FamilyLlavaNext ModelFamily = "llava_next"
	FamilyQwen2VL   ModelFamily = "qwen2_vl"
)

// ModelConfig describes the vision side of a model. A nil ModelConfig means
// a text-only model.
type ModelConfig struct {
	Family ModelFamily
	// NumFeatures computes the number of placeholder slots for an image of
	// the given geometry. Required for the idefics2, paligemma, llava_next
	// and qwen2_vl families.
	NumFeatures func(height, width int) int
}

// PreprocessorConfig carries preprocessing options from the model hub
type PreprocessorConfig struct {
	// DoImageSplitting activates the 5x placeholder expansion of the
	// idefics2 family
	DoImageSplitting bool
}

var visionFamilies = map[ModelFamily]bool{
	FamilyIdefics:   true,
	FamilyMllama:    true,
	FamilyIdefics2:  true,
	FamilyPaligemma: true,
	FamilyLlavaNext: true,
	FamilyQwen2VL:   true,
}

// VisionCapable reports whether inline media markup is processed for this
// model configuration
func (c *ModelConfig) VisionCapable() bool {
	return c != nil && visionFamilies[c.Family]
}
