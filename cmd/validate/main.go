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

// Validate reads a generate request as JSON from stdin, runs it through the
// validation pipeline and prints the validated request. Useful for checking
// request admission settings without a running server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"k8s.io/klog/v2"

	"github.com/mfarre/text-generation-inference/cmd/signals"
	"github.com/mfarre/text-generation-inference/pkg/common"
	"github.com/mfarre/text-generation-inference/pkg/common/logging"
	generateapi "github.com/mfarre/text-generation-inference/pkg/generate-api"
	"github.com/mfarre/text-generation-inference/pkg/tokenizer"
	"github.com/mfarre/text-generation-inference/pkg/validation"
)

func main() {
	logger := klog.Background()
	ctx := klog.NewContext(context.Background(), logger)
	ctx = signals.SetupSignalHandler(ctx)

	config, err := common.ParseConfig(os.Args[1:])
	if err != nil {
		logger.Error(err, "invalid configuration")
		os.Exit(1)
	}

	tok, err := newTokenizer(ctx, config)
	if err != nil {
		logger.Error(err, "failed to create tokenizer")
		os.Exit(1)
	}

	v, err := validation.New(ctx, config, tok, nil, nil, nil, nil, logger)
	if err != nil {
		logger.Error(err, "failed to create validation")
		os.Exit(1)
	}
	defer v.Stop()

	input, err := io.ReadAll(os.Stdin)
	if err != nil {
		logger.Error(err, "failed to read request from stdin")
		os.Exit(1)
	}
	var request generateapi.GenerateRequest
	if err := json.Unmarshal(input, &request); err != nil {
		logger.Error(err, "malformed generate request")
		os.Exit(1)
	}

	logger.V(logging.DEBUG).Info("validating request", "model", config.Model)
	valid, err := v.Validate(ctx, &request)
	if err != nil {
		logger.Error(err, "request rejected")
		os.Exit(1)
	}

	output, err := json.MarshalIndent(valid, "", "  ")
	if err != nil {
		logger.Error(err, "failed to serialize validated request")
		os.Exit(1)
	}
	fmt.Println(string(output))
}

func newTokenizer(ctx context.Context, config *common.Configuration) (tokenizer.Tokenizer, error) {
	if config.TokenizerMode == common.TokenizerModeExternal {
		return tokenizer.NewExternalTokenizer(ctx, config.TokenizerSocket, config.Model)
	}
	return tokenizer.NewNativeTokenizer(config.TokenizerEncoding)
}
