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

package validation

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	"k8s.io/klog/v2"

	"github.com/mfarre/text-generation-inference/pkg/common/logging"
	genapi "github.com/mfarre/text-generation-inference/pkg/generate-api"
	"github.com/mfarre/text-generation-inference/pkg/preprocessing"
	"github.com/mfarre/text-generation-inference/pkg/tokenizer"
)

// tokenizeResult is delivered on the per-request reply channel, at most once
type tokenizeResult struct {
	encoding *tokenizer.Encoding
	chunks   []genapi.Chunk
	err      error
}

// tokenizeRequest travels from the ingress channel through the distributor
// to a tokenize worker. The response channel has capacity 1 so the worker's
// send never blocks even if the requester is gone.
type tokenizeRequest struct {
	requestID        string
	inputs           string
	addSpecialTokens bool
	// truncate keeps only the trailing truncate tokens of the encoding
	truncate *int
	response chan tokenizeResult
	ctx      context.Context
}

// startDistributor fans requests from the ingress channel out to the worker
// channels in strict round-robin order. It blocks when the chosen worker's
// queue is full, keeping arrival order intact. Worker channels are closed
// when the ingress channel is closed or the context is cancelled.
func (v *Validation) startDistributor(ctx context.Context, ingress <-chan *tokenizeRequest,
	workers []chan *tokenizeRequest) error {
	defer func() {
		for _, w := range workers {
			close(w)
		}
	}()

	cursor := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case req, ok := <-ingress:
			if !ok {
				return nil
			}
			select {
			case <-ctx.Done():
				return nil
			case workers[cursor] <- req:
				cursor = (cursor + 1) % len(workers)
			}
		}
	}
}

// tokenizeWorker drains its queue until the channel is closed. Each worker
// owns a clone of the tokenizer, so no locking is needed around Encode.
// A failed request never takes the worker down.
func (v *Validation) tokenizeWorker(id int, queue <-chan *tokenizeRequest, tok tokenizer.Tokenizer) error {
	logger := v.logger.WithValues("worker", id)
	for req := range queue {
		result := v.runTokenize(req, tok, logger)
		// best effort, the requester may have given up
		select {
		case req.response <- result:
		default:
		}
	}
	logger.V(logging.DEBUG).Info("tokenize worker stopped")
	return nil
}

func (v *Validation) runTokenize(req *tokenizeRequest, tok tokenizer.Tokenizer,
	logger logr.Logger) (result tokenizeResult) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(nil, "panic in tokenize worker", "panic", r, "requestID", req.requestID)
			result = tokenizeResult{err: &TokenizerError{Message: fmt.Sprintf("%v", r)}}
		}
	}()

	// trace with the caller's logger so request-scoped values survive the
	// hop across the dispatch queue
	klog.FromContext(req.ctx).V(logging.TRACE).Info("tokenizing request", "requestID", req.requestID)

	prompt, chunks, err := preprocessing.BuildPrompt(req.inputs, v.modelConfig, v.preprocessorConfig)
	if err != nil {
		return tokenizeResult{err: err}
	}

	encoding, err := tok.Encode(prompt, req.addSpecialTokens)
	if err != nil {
		return tokenizeResult{err: &TokenizerError{Message: err.Error()}}
	}
	truncateEncoding(encoding, req.truncate)

	return tokenizeResult{encoding: encoding, chunks: chunks}
}

// truncateEncoding keeps the trailing truncate tokens, the head of an
// over-long prompt is the part that gets dropped
func truncateEncoding(encoding *tokenizer.Encoding, truncate *int) {
	if truncate == nil || *truncate >= encoding.Len() {
		return
	}
	if encoding.InputIDs != nil {
		encoding.InputIDs = encoding.InputIDs[len(encoding.InputIDs)-*truncate:]
	}
	if encoding.Tokens != nil {
		encoding.Tokens = encoding.Tokens[len(encoding.Tokens)-*truncate:]
	}
}
