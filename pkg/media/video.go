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
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

const (
	videoMarkupPrefix  = "<video>("
	videoURLPrefixHTTP = "<video>(http://"
	videoURLPrefixTLS  = "<video>(https://"
	videoDataPrefix    = "<video>(data:"

	bytesPerPixel = 3 // rgb24
)

// ProcessedVideo is the sampled frame data of one video reference
type ProcessedVideo struct {
	Mimetype string
	Height   uint32
	Width    uint32
	// Frames holds one raw RGB frame per sampled second of source video,
	// scaled and padded to Width x Height
	Frames [][]byte
	FPS    float32
	// TotalFrames is the frame count of the source video
	TotalFrames int
	// SampledFrames is the number of frames in Frames
	SampledFrames int
}

// FetchVideo resolves an inline video markup reference of the form
// <video>(http(s)://...) or <video>(data:<mime>;base64,<payload>), probing
// the source with ffprobe and extracting one RGB frame per second with
// ffmpeg, scaled and padded to the target box.
func FetchVideo(input string, targetWidth, targetHeight uint32) (*ProcessedVideo, error) {
	mimetype, sourcePath, cleanup, err := resolveVideoSource(input)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	fps, totalFrames, err := probeVideo(sourcePath)
	if err != nil {
		return nil, err
	}

	frames, err := extractFrames(sourcePath, targetWidth, targetHeight)
	if err != nil {
		return nil, err
	}

	return &ProcessedVideo{
		Mimetype:      mimetype,
		Height:        targetHeight,
		Width:         targetWidth,
		Frames:        frames,
		FPS:           fps,
		TotalFrames:   totalFrames,
		SampledFrames: len(frames),
	}, nil
}

// resolveVideoSource turns the markup reference into a path ffmpeg can read,
// materializing base64 payloads into a temporary file
func resolveVideoSource(input string) (mimetype, sourcePath string, cleanup func(), err error) {
	if strings.HasPrefix(input, videoURLPrefixHTTP) || strings.HasPrefix(input, videoURLPrefixTLS) {
		url := input[len(videoMarkupPrefix) : len(input)-1]
		return "video/mp4", url, nil, nil
	}

	if !strings.HasPrefix(input, videoDataPrefix) {
		return "", "", nil, &InvalidVideoContentError{Content: input}
	}

	content := input[len(videoDataPrefix) : len(input)-1]
	tokens := strings.Split(content, ";")
	if len(tokens) != 2 {
		return "", "", nil, &InvalidVideoContentError{Content: content}
	}
	mimetype = tokens[0]
	payload := tokens[1]
	if !strings.HasPrefix(payload, base64PayloadMark) {
		return "", "", nil, &InvalidVideoContentError{Content: content}
	}
	data, err := base64.StdEncoding.DecodeString(payload[len(base64PayloadMark):])
	if err != nil {
		return "", "", nil, &InvalidBase64Error{Cause: err}
	}

	tempFile, err := os.CreateTemp("", "video-*")
	if err != nil {
		return "", "", nil, &IOError{Cause: err}
	}
	cleanup = func() { _ = os.Remove(tempFile.Name()) }
	if _, err := tempFile.Write(data); err != nil {
		cleanup()
		return "", "", nil, &IOError{Cause: err}
	}
	if err := tempFile.Close(); err != nil {
		cleanup()
		return "", "", nil, &IOError{Cause: err}
	}
	return mimetype, tempFile.Name(), cleanup, nil
}

// probeVideo returns the source frame rate and total frame count
func probeVideo(sourcePath string) (float32, int, error) {
	probeArgs := []string{
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=r_frame_rate,nb_frames",
		"-of", "default=noprint_wrappers=1:nokey=1",
		sourcePath,
	}
	output, err := exec.Command("ffprobe", probeArgs...).Output()
	if err != nil {
		return 0, 0, &FFmpegError{Message: toolFailure("ffprobe", err)}
	}

	lines := strings.Split(strings.TrimSpace(string(output)), "\n")
	if len(lines) < 2 {
		return 0, 0, &FFmpegError{Message: "no framerate found"}
	}

	num, den, ok := strings.Cut(strings.TrimSpace(lines[0]), "/")
	if !ok {
		return 0, 0, &FFmpegError{Message: "invalid framerate format"}
	}
	numerator, err := strconv.ParseFloat(num, 32)
	if err != nil {
		return 0, 0, &FFmpegError{Message: "invalid framerate numerator"}
	}
	denominator, err := strconv.ParseFloat(den, 32)
	if err != nil || denominator == 0 {
		return 0, 0, &FFmpegError{Message: "invalid framerate denominator"}
	}
	fps := float32(math.Floor(numerator / denominator))

	totalFrames, err := strconv.Atoi(strings.TrimSpace(lines[1]))
	if err != nil {
		return 0, 0, &FFmpegError{Message: "invalid frame count"}
	}
	return fps, totalFrames, nil
}

// extractFrames samples one frame per second of source video as raw rgb24,
// scaled to fit and padded to the target box
func extractFrames(sourcePath string, targetWidth, targetHeight uint32) ([][]byte, error) {
	outputFile, err := os.CreateTemp("", "frames-*.raw")
	if err != nil {
		return nil, &IOError{Cause: err}
	}
	outputPath := outputFile.Name()
	defer func() { _ = os.Remove(outputPath) }()
	if err := outputFile.Close(); err != nil {
		return nil, &IOError{Cause: err}
	}

	filter := fmt.Sprintf("fps=1,scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2",
		targetWidth, targetHeight, targetWidth, targetHeight)
	ffmpegArgs := []string{
		"-y",
		"-i", sourcePath,
		"-vf", filter,
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		outputPath,
	}
	if _, err := exec.Command("ffmpeg", ffmpegArgs...).Output(); err != nil {
		return nil, &FFmpegError{Message: toolFailure("ffmpeg frame extraction", err)}
	}

	rawData, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, &IOError{Cause: err}
	}

	bytesPerRow := int(targetWidth) * bytesPerPixel
	bytesPerFrame := int(targetHeight) * bytesPerRow
	numFrames := len(rawData) / bytesPerFrame

	frames := make([][]byte, 0, numFrames)
	for frameIdx := 0; frameIdx < numFrames; frameIdx++ {
		frameData := make([]byte, 0, bytesPerFrame)
		frameStart := frameIdx * bytesPerFrame
		// copy row by row, frames are handed over in row-major order
		for y := 0; y < int(targetHeight); y++ {
			rowStart := frameStart + y*bytesPerRow
			frameData = append(frameData, rawData[rowStart:rowStart+bytesPerRow]...)
		}
		frames = append(frames, frameData)
	}
	return frames, nil
}

func toolFailure(tool string, err error) string {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Sprintf("%s failed: %s", tool, strings.TrimSpace(string(exitErr.Stderr)))
	}
	return fmt.Sprintf("%s execution failed: %s", tool, err)
}
