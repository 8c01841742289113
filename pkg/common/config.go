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

package common

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

const (
	// TokenizerModeNative runs the in-process BPE tokenizer.
	TokenizerModeNative = "native"
	// TokenizerModeExternal talks to a tokenizer served by an external
	// runtime over a unix domain socket. Restricted to a single worker.
	TokenizerModeExternal = "external"

	defaultQueueCapacity = 512
)

// Configuration holds all request admission limits and tokenizer settings
type Configuration struct {
	// Model is the model name served by this router
	Model string `yaml:"model" json:"model"`
	// TokenizeWorkers is the number of tokenization workers, clamped to 1
	// when the tokenizer is not shareable across workers
	TokenizeWorkers int `yaml:"tokenize-workers" json:"tokenize-workers"`
	// QueueCapacity is the capacity of the tokenization ingress queue and
	// of each per-worker queue
	QueueCapacity int `yaml:"queue-capacity" json:"queue-capacity"`
	// TokenizerMode selects the tokenizer implementation, one of
	// "native" or "external"
	TokenizerMode string `yaml:"tokenizer-mode" json:"tokenizer-mode"`
	// TokenizerEncoding is the BPE encoding name used in native mode
	TokenizerEncoding string `yaml:"tokenizer-encoding" json:"tokenizer-encoding"`
	// TokenizerSocket is the unix socket path used in external mode
	TokenizerSocket string `yaml:"tokenizer-socket" json:"tokenizer-socket"`

	// MaxBestOf is the maximum allowed value of the best_of parameter
	MaxBestOf int `yaml:"max-best-of" json:"max-best-of"`
	// MaxStopSequences is the maximum number of stop sequences per request
	MaxStopSequences int `yaml:"max-stop-sequences" json:"max-stop-sequences"`
	// MaxTopNTokens is the maximum allowed value of the top_n_tokens parameter
	MaxTopNTokens uint32 `yaml:"max-top-n-tokens" json:"max-top-n-tokens"`
	// MaxInputLength is the maximum number of input tokens per request
	MaxInputLength int `yaml:"max-input-length" json:"max-input-length"`
	// MaxTotalTokens is the maximum of input plus generated tokens per request
	MaxTotalTokens int `yaml:"max-total-tokens" json:"max-total-tokens"`
	// DisableGrammarSupport rejects requests carrying a grammar constraint
	DisableGrammarSupport bool `yaml:"disable-grammar-support" json:"disable-grammar-support"`
}

func newConfig() *Configuration {
	return &Configuration{
		TokenizeWorkers:   1,
		QueueCapacity:     defaultQueueCapacity,
		TokenizerMode:     TokenizerModeNative,
		TokenizerEncoding: "cl100k_base",
		MaxBestOf:         2,
		MaxStopSequences:  4,
		MaxTopNTokens:     5,
		MaxInputLength:    1024,
		MaxTotalTokens:    2048,
	}
}

func (c *Configuration) load(configFile string) error {
	configBytes, err := os.ReadFile(configFile)
	if err != nil {
		return fmt.Errorf("failed to read configuration file: %w", err)
	}

	if err := yaml.Unmarshal(configBytes, &c); err != nil {
		return fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	return nil
}

func (c *Configuration) validate() error {
	if c.Model == "" {
		return errors.New("model parameter is empty")
	}
	if c.TokenizeWorkers < 1 {
		return errors.New("number of tokenize workers cannot be less than 1")
	}
	if c.QueueCapacity < 1 {
		return errors.New("queue capacity cannot be less than 1")
	}
	if c.TokenizerMode != TokenizerModeNative && c.TokenizerMode != TokenizerModeExternal {
		return fmt.Errorf("invalid tokenizer mode '%s', valid values are 'native' and 'external'", c.TokenizerMode)
	}
	if c.TokenizerMode == TokenizerModeExternal && c.TokenizerSocket == "" {
		return errors.New("tokenizer socket path is required in external tokenizer mode")
	}
	if c.MaxBestOf < 1 {
		return errors.New("max best_of cannot be less than 1")
	}
	if c.MaxStopSequences < 0 {
		return errors.New("max stop sequences cannot be negative")
	}
	if c.MaxInputLength < 1 {
		return errors.New("max input length cannot be less than 1")
	}
	if c.MaxTotalTokens < 1 {
		return errors.New("max total tokens cannot be less than 1")
	}
	if c.MaxInputLength >= c.MaxTotalTokens {
		return errors.New("max input length must be lower than max total tokens")
	}
	return nil
}

// ParseConfig builds a Configuration from the given command line arguments,
// loading the optional yaml config file first so that explicit flags win.
func ParseConfig(args []string) (*Configuration, error) {
	config := newConfig()

	configFile := ""
	f := pflag.NewFlagSet("config", pflag.ContinueOnError)
	f.StringVar(&configFile, "config", "", "the path to a yaml configuration file")

	f.StringVar(&config.Model, "model", config.Model, "the model name served by this router")
	f.IntVar(&config.TokenizeWorkers, "tokenize-workers", config.TokenizeWorkers, "number of tokenization workers")
	f.IntVar(&config.QueueCapacity, "queue-capacity", config.QueueCapacity, "capacity of the tokenization queues")
	f.StringVar(&config.TokenizerMode, "tokenizer-mode", config.TokenizerMode, "tokenizer mode, one of 'native' or 'external'")
	f.StringVar(&config.TokenizerEncoding, "tokenizer-encoding", config.TokenizerEncoding, "BPE encoding name for the native tokenizer")
	f.StringVar(&config.TokenizerSocket, "tokenizer-socket", config.TokenizerSocket, "unix socket path of the external tokenizer runtime")
	f.IntVar(&config.MaxBestOf, "max-best-of", config.MaxBestOf, "maximum allowed best_of value")
	f.IntVar(&config.MaxStopSequences, "max-stop-sequences", config.MaxStopSequences, "maximum number of stop sequences per request")
	f.Uint32Var(&config.MaxTopNTokens, "max-top-n-tokens", config.MaxTopNTokens, "maximum allowed top_n_tokens value")
	f.IntVar(&config.MaxInputLength, "max-input-length", config.MaxInputLength, "maximum number of input tokens")
	f.IntVar(&config.MaxTotalTokens, "max-total-tokens", config.MaxTotalTokens, "maximum number of input plus generated tokens")
	f.BoolVar(&config.DisableGrammarSupport, "disable-grammar-support", config.DisableGrammarSupport, "reject requests that carry a grammar")

	if err := f.Parse(args); err != nil {
		return nil, err
	}

	if configFile != "" {
		if err := config.load(configFile); err != nil {
			return nil, err
		}
		// flags take precedence over the config file
		if err := f.Parse(args); err != nil {
			return nil, err
		}
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}
