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

// Package media fetches image and video bytes referenced by inline prompt
// markup and reports their basic geometry. Fetches are never retried, a
// transient failure is reported to the caller.
package media

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"strings"

	"github.com/valyala/fasthttp"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	imageMarkupPrefix  = "![]("
	dataURIPrefix      = "data:"
	base64PayloadMark  = "base64,"
	imageURLPrefixHTTP = "![](http://"
	imageURLPrefixTLS  = "![](https://"
)

var formatToMimetype = map[string]string{
	"png":  "image/png",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"webp": "image/webp",
	"tiff": "image/tiff",
}

// ProcessedImage is the fetched image payload plus its basic geometry
type ProcessedImage struct {
	Data     []byte
	Mimetype string
	Height   int
	Width    int
}

// FetchImage resolves an inline image markup reference of the form
// ![](http(s)://...) or ![](data:<mime>;base64,<payload>)
func FetchImage(input string) (*ProcessedImage, error) {
	switch {
	case strings.HasPrefix(input, imageURLPrefixHTTP) || strings.HasPrefix(input, imageURLPrefixTLS):
		url := input[len(imageMarkupPrefix) : len(input)-1]
		data, err := fetchURL(url)
		if err != nil {
			return nil, err
		}
		config, format, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return nil, &InvalidImageError{Cause: err}
		}
		mimetype, ok := formatToMimetype[format]
		if !ok {
			mimetype = "application/octet-stream"
		}
		return &ProcessedImage{
			Data:     data,
			Mimetype: mimetype,
			Height:   config.Height,
			Width:    config.Width,
		}, nil

	case strings.HasPrefix(input, imageMarkupPrefix+dataURIPrefix):
		content := input[len(imageMarkupPrefix)+len(dataURIPrefix) : len(input)-1]
		tokens := strings.Split(content, ";")
		if len(tokens) != 2 {
			return nil, &InvalidImageContentError{Content: content}
		}
		mimetype := tokens[0]
		payload := tokens[1]
		if !strings.HasPrefix(payload, base64PayloadMark) {
			return nil, &InvalidImageContentError{Content: content}
		}
		data, err := base64.StdEncoding.DecodeString(payload[len(base64PayloadMark):])
		if err != nil {
			return nil, &InvalidBase64Error{Cause: err}
		}
		config, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return nil, &InvalidImageError{Cause: err}
		}
		return &ProcessedImage{
			Data:     data,
			Mimetype: mimetype,
			Height:   config.Height,
			Width:    config.Width,
		}, nil
	}

	return nil, &InvalidImageContentError{Content: input}
}

func fetchURL(url string) ([]byte, error) {
	statusCode, body, err := fasthttp.Get(nil, url)
	if err != nil {
		return nil, &FetchError{URL: url, Cause: err}
	}
	if statusCode != fasthttp.StatusOK {
		return nil, &FetchError{URL: url, Cause: fmt.Errorf("unexpected status code %d", statusCode)}
	}
	return body, nil
}
