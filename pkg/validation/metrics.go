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
	"github.com/prometheus/client_golang/prometheus"
)

// createAndRegisterMetrics creates the validation histograms and registers
// them with the given registry. A nil registry gets a private one, useful
// for tests and embedded use.
func (v *Validation) createAndRegisterMetrics(registry *prometheus.Registry) error {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	v.registry = registry

	v.requestInputLength = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tgi_request_input_length",
			Help:    "Number of input tokens per validated request.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 16),
		},
	)
	if err := registry.Register(v.requestInputLength); err != nil {
		v.logger.Error(err, "prometheus request input length histogram register failed")
		return err
	}

	v.requestMaxNewTokens = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tgi_request_max_new_tokens",
			Help:    "Resolved max_new_tokens per validated request.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 16),
		},
	)
	if err := registry.Register(v.requestMaxNewTokens); err != nil {
		v.logger.Error(err, "prometheus request max new tokens histogram register failed")
		return err
	}

	return nil
}
