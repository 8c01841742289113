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

// Package validation turns raw generate requests into fully resolved,
// budget-checked requests. All user-facing failures are typed errors,
// nothing here takes the process down on malformed input.
package validation

import (
	"context"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/mfarre/text-generation-inference/pkg/common"
	"github.com/mfarre/text-generation-inference/pkg/common/logging"
	genapi "github.com/mfarre/text-generation-inference/pkg/generate-api"
	"github.com/mfarre/text-generation-inference/pkg/grammar"
	"github.com/mfarre/text-generation-inference/pkg/preprocessing"
	"github.com/mfarre/text-generation-inference/pkg/tokenizer"
)

// Validation owns the tokenize dispatch workers and applies the request
// admission checks. Create it with New and release it with Stop.
type Validation struct {
	logger             logr.Logger
	config             *common.Configuration
	modelConfig        *preprocessing.ModelConfig
	preprocessorConfig *preprocessing.PreprocessorConfig
	grammarCompiler    *grammar.Compiler
	random             *common.Random

	ingress chan *tokenizeRequest
	group   *errgroup.Group

	registry            *prometheus.Registry
	requestInputLength  prometheus.Histogram
	requestMaxNewTokens prometheus.Histogram
}

// New builds a Validation and starts its distributor and tokenize workers.
// The worker count comes from the configuration but is forced to 1 when the
// tokenizer cannot be shared across workers. Workers run until Stop is
// called or ctx is cancelled.
func New(ctx context.Context, config *common.Configuration, tok tokenizer.Tokenizer,
	modelConfig *preprocessing.ModelConfig, preprocessorConfig *preprocessing.PreprocessorConfig,
	transform grammar.SchemaToRegex, registry *prometheus.Registry, logger logr.Logger) (*Validation, error) {
	workers := config.TokenizeWorkers
	if workers < 1 {
		workers = 1
	}
	if !tok.Shareable() && workers > 1 {
		logger.V(logging.INFO).Info("tokenizer is not shareable, using a single tokenize worker",
			"requested", workers)
		workers = 1
	}

	v := &Validation{
		logger:             logger,
		config:             config,
		modelConfig:        modelConfig,
		preprocessorConfig: preprocessorConfig,
		grammarCompiler:    grammar.NewCompiler(config.DisableGrammarSupport, transform),
		random:             common.NewTimeSeededRandom(),
		ingress:            make(chan *tokenizeRequest, config.QueueCapacity),
	}

	if err := v.createAndRegisterMetrics(registry); err != nil {
		return nil, err
	}

	workerQueues := make([]chan *tokenizeRequest, workers)
	for i := range workerQueues {
		workerQueues[i] = make(chan *tokenizeRequest, config.QueueCapacity)
	}

	v.group, _ = errgroup.WithContext(ctx)
	v.group.Go(func() error {
		return v.startDistributor(ctx, v.ingress, workerQueues)
	})
	for i := range workerQueues {
		id := i
		queue := workerQueues[i]
		workerTok := tok.Clone()
		v.group.Go(func() error {
			return v.tokenizeWorker(id, queue, workerTok)
		})
	}

	logger.V(logging.INFO).Info("validation started", "workers", workers,
		"maxInputLength", config.MaxInputLength, "maxTotalTokens", config.MaxTotalTokens)
	return v, nil
}

// Stop closes the ingress queue and waits for the distributor and workers
// to drain and exit.
func (v *Validation) Stop() {
	close(v.ingress)
	_ = v.group.Wait()
}

// Tokenize builds the multimodal chunks for inputs and encodes the
// resulting prompt through one of the dispatch workers.
func (v *Validation) Tokenize(ctx context.Context, inputs string,
	addSpecialTokens bool) (*tokenizer.Encoding, []genapi.Chunk, error) {
	return v.dispatch(ctx, inputs, addSpecialTokens, nil)
}

func (v *Validation) dispatch(ctx context.Context, inputs string, addSpecialTokens bool,
	truncate *int) (*tokenizer.Encoding, []genapi.Chunk, error) {
	req := &tokenizeRequest{
		requestID:        v.random.GenerateUUIDString(),
		inputs:           inputs,
		addSpecialTokens: addSpecialTokens,
		truncate:         truncate,
		response:         make(chan tokenizeResult, 1),
		ctx:              ctx,
	}

	select {
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	case v.ingress <- req:
	}

	select {
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	case result := <-req.response:
		if result.err != nil {
			return nil, nil, result.err
		}
		return result.encoding, result.chunks, nil
	}
}

// ValidateBestOf checks a best_of value against the configured maximum,
// independently of a full request.
func (v *Validation) ValidateBestOf(bestOf int) (int, error) {
	if v.config.MaxBestOf == 1 {
		if bestOf != 1 {
			return 0, ErrBestOfDisabled
		}
		return 1, nil
	}
	if bestOf <= 0 || bestOf > v.config.MaxBestOf {
		return 0, &BestOfError{Max: v.config.MaxBestOf, Given: bestOf}
	}
	return bestOf, nil
}

// Validate runs the full admission pipeline on a generate request. Checks
// short-circuit on the first failure, cheapest first, so the tokenizer is
// never consulted for a request that is already syntactically invalid.
func (v *Validation) Validate(ctx context.Context, req *genapi.GenerateRequest) (*genapi.ValidGenerateRequest, error) {
	p := req.Parameters

	bestOf := 1
	if p.BestOf != nil {
		var err error
		bestOf, err = v.ValidateBestOf(*p.BestOf)
		if err != nil {
			return nil, err
		}
	}

	sampling := p.DoSample ||
		p.Temperature != nil || p.TopK != nil || p.TopP != nil || p.TypicalP != nil
	if bestOf > 1 && !sampling {
		return nil, ErrBestOfSampling
	}

	temperature := float32(1.0)
	if p.Temperature != nil {
		temperature = *p.Temperature
		if temperature <= 0 {
			return nil, ErrTemperature
		}
	}

	repetitionPenalty := float32(1.0)
	if p.RepetitionPenalty != nil {
		repetitionPenalty = *p.RepetitionPenalty
		if repetitionPenalty <= 0 {
			return nil, ErrRepetitionPenalty
		}
	}

	frequencyPenalty := float32(0.0)
	if p.FrequencyPenalty != nil {
		frequencyPenalty = *p.FrequencyPenalty
		if frequencyPenalty < -2.0 || frequencyPenalty > 2.0 {
			return nil, ErrFrequencyPenalty
		}
	}

	topP := float32(1.0)
	if p.TopP != nil {
		topP = *p.TopP
		if topP <= 0 || topP >= 1 {
			return nil, ErrTopP
		}
	}

	typicalP := float32(1.0)
	if p.TypicalP != nil {
		typicalP = *p.TypicalP
		if typicalP <= 0 || typicalP >= 1 {
			return nil, ErrTypicalP
		}
	}

	topK := uint32(0)
	if p.TopK != nil {
		if *p.TopK <= 0 {
			return nil, ErrTopK
		}
		topK = uint32(*p.TopK)
	}

	if p.MaxNewTokens != nil && *p.MaxNewTokens == 0 {
		return nil, ErrNegativeMaxNewTokens
	}

	if len(p.Stop) > v.config.MaxStopSequences {
		return nil, &StopSequenceError{Max: v.config.MaxStopSequences, Given: len(p.Stop)}
	}

	var seed uint64
	if p.Seed == nil {
		seed = v.random.RandomSeed()
	} else {
		if bestOf > 1 {
			return nil, ErrBestOfSeed
		}
		seed = *p.Seed
	}

	topNTokens := uint32(0)
	if p.TopNTokens != nil {
		if *p.TopNTokens > v.config.MaxTopNTokens {
			return nil, &TopNTokensError{Max: v.config.MaxTopNTokens, Given: *p.TopNTokens}
		}
		topNTokens = *p.TopNTokens
	}

	if req.Inputs == "" {
		return nil, ErrEmptyInput
	}

	if p.Truncate != nil {
		if *p.Truncate <= 0 || *p.Truncate > v.config.MaxInputLength {
			return nil, &TruncateError{Max: v.config.MaxInputLength, Given: *p.Truncate}
		}
	}

	inputIDs, chunks, inputLength, maxNewTokens, err := v.validateInput(ctx,
		req.Inputs, req.AddSpecialTokens, p.Truncate, p.MaxNewTokens)
	if err != nil {
		return nil, err
	}

	validGrammar, err := v.grammarCompiler.Compile(p.Grammar)
	if err != nil {
		return nil, err
	}

	// an absent truncate resolves to the full input budget
	truncate := uint32(v.config.MaxInputLength)
	if p.Truncate != nil {
		truncate = uint32(*p.Truncate)
	}

	valid := &genapi.ValidGenerateRequest{
		Inputs:              chunks,
		InputIDs:            inputIDs,
		InputLength:         uint32(inputLength),
		Truncate:            truncate,
		AddSpecialTokens:    req.AddSpecialTokens,
		DecoderInputDetails: p.DecoderInputDetails,
		Parameters: genapi.ValidParameters{
			Temperature:       temperature,
			RepetitionPenalty: repetitionPenalty,
			FrequencyPenalty:  frequencyPenalty,
			TopK:              topK,
			TopP:              topP,
			TypicalP:          typicalP,
			DoSample:          p.DoSample,
			Seed:              seed,
			Watermark:         p.Watermark,
			Grammar:           validGrammar,
		},
		StoppingParameters: genapi.ValidStoppingParameters{
			MaxNewTokens:   maxNewTokens,
			StopSequences:  p.Stop,
			IgnoreEOSToken: false,
		},
		TopNTokens: topNTokens,
		AdapterID:  p.AdapterID,
	}

	v.requestMaxNewTokens.Observe(float64(maxNewTokens))

	return valid, nil
}

// validateInput tokenizes the prompt and applies the token budgets. The
// workers already capped the encoding at truncate, and an absent
// max_new_tokens resolves to whatever budget is left under the total.
func (v *Validation) validateInput(ctx context.Context, inputs string, addSpecialTokens bool,
	truncate *int, requestedMaxNewTokens *uint32) ([]uint32, []genapi.Chunk, int, uint32, error) {
	encoding, chunks, err := v.dispatch(ctx, inputs, addSpecialTokens, truncate)
	if err != nil {
		return nil, nil, 0, 0, err
	}

	inputLength := encoding.Len()
	if truncate != nil && *truncate < inputLength {
		inputLength = *truncate
	}

	var maxNewTokens uint32
	if requestedMaxNewTokens != nil {
		maxNewTokens = *requestedMaxNewTokens
	} else if inputLength >= v.config.MaxTotalTokens {
		maxNewTokens = 0
	} else {
		maxNewTokens = uint32(v.config.MaxTotalTokens - inputLength)
	}

	if inputLength+int(maxNewTokens) > v.config.MaxTotalTokens {
		return nil, nil, 0, 0, &MaxTotalTokensError{
			MaxTotalTokens: v.config.MaxTotalTokens,
			InputLength:    inputLength,
			MaxNewTokens:   maxNewTokens,
		}
	}
	if inputLength > v.config.MaxInputLength {
		return nil, nil, 0, 0, &InputLengthError{Max: v.config.MaxInputLength, Given: inputLength}
	}

	var inputIDs []uint32
	if encoding.InputIDs != nil {
		inputIDs = encoding.InputIDs[len(encoding.InputIDs)-inputLength:]
	}

	v.requestInputLength.Observe(float64(inputLength))

	v.logger.V(logging.TRACE).Info("request validated",
		"inputLength", inputLength, "maxNewTokens", maxNewTokens)

	return inputIDs, chunks, inputLength, maxNewTokens, nil
}
