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

import "fmt"

// InvalidImageContentError reports image markup that is neither a supported
// URL form nor a supported data URI form
type InvalidImageContentError struct {
	Content string
}

func (e *InvalidImageContentError) Error() string {
	return fmt.Sprintf("invalid image content: %s", e.Content)
}

// InvalidVideoContentError reports video markup that is neither a supported
// URL form nor a supported data URI form
type InvalidVideoContentError struct {
	Content string
}

func (e *InvalidVideoContentError) Error() string {
	return fmt.Sprintf("invalid video content: %s", e.Content)
}

// InvalidBase64Error reports an undecodable base64 payload
type InvalidBase64Error struct {
	Cause error
}

func (e *InvalidBase64Error) Error() string {
	return fmt.Sprintf("base64 encoding is invalid: %s", e.Cause)
}

func (e *InvalidBase64Error) Unwrap() error {
	return e.Cause
}

// InvalidImageError reports image bytes that could not be decoded
type InvalidImageError struct {
	Cause error
}

func (e *InvalidImageError) Error() string {
	return fmt.Sprintf("invalid image: %s", e.Cause)
}

func (e *InvalidImageError) Unwrap() error {
	return e.Cause
}

// FetchError reports a transport failure while fetching remote media
type FetchError struct {
	URL   string
	Cause error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("could not fetch image: %s", e.Cause)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

// FFmpegError reports an external media tool invocation failure, carrying
// the tool diagnostics
type FFmpegError struct {
	Message string
}

func (e *FFmpegError) Error() string {
	return fmt.Sprintf("ffmpeg error: %s", e.Message)
}

// IOError reports a filesystem failure during media processing
type IOError struct {
	Cause error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("io error: %s", e.Cause)
}

func (e *IOError) Unwrap() error {
	return e.Cause
}
