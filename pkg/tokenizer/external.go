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

package tokenizer

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
)

// ExternalTokenizer talks to a tokenizer served by an external runtime over
// a unix domain socket, one JSON request and one JSON reply per line. It is
// the slow path for models whose tokenizer has no native implementation.
// The connection is not safely shareable across concurrent workers, so the
// dispatch service must run a single worker for it.
type ExternalTokenizer struct {
	model  string
	conn   net.Conn
	reader *bufio.Reader
	mu     sync.Mutex
}

type externalEncodeRequest struct {
	Model            string `json:"model"`
	Inputs           string `json:"inputs"`
	AddSpecialTokens bool   `json:"add_special_tokens"`
}

type externalEncodeResponse struct {
	InputIDs []uint32 `json:"input_ids"`
	Tokens   []string `json:"tokens"`
	Error    string   `json:"error,omitempty"`
}

// NewExternalTokenizer connects to the tokenizer runtime listening on the
// given unix socket path
func NewExternalTokenizer(ctx context.Context, socketPath string, model string) (*ExternalTokenizer, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return nil, errors.Join(err, errors.New("failed to connect to external tokenizer runtime"))
	}
	return &ExternalTokenizer{
		model:  model,
		conn:   conn,
		reader: bufio.NewReader(conn),
	}, nil
}

func (et *ExternalTokenizer) Encode(input string, addSpecialTokens bool) (*Encoding, error) {
	et.mu.Lock()
	defer et.mu.Unlock()

	request, err := json.Marshal(externalEncodeRequest{
		Model:            et.model,
		Inputs:           input,
		AddSpecialTokens: addSpecialTokens,
	})
	if err != nil {
		return nil, err
	}
	request = append(request, '\n')
	if _, err := et.conn.Write(request); err != nil {
		return nil, fmt.Errorf("failed to send encode request: %w", err)
	}

	line, err := et.reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read encode response: %w", err)
	}
	var response externalEncodeResponse
	if err := json.Unmarshal(line, &response); err != nil {
		return nil, fmt.Errorf("malformed encode response: %w", err)
	}
	if response.Error != "" {
		return nil, errors.New(response.Error)
	}
	return &Encoding{InputIDs: response.InputIDs, Tokens: response.Tokens}, nil
}

// Clone returns the tokenizer itself, the runtime connection cannot be cloned
func (et *ExternalTokenizer) Clone() Tokenizer {
	return et
}

func (et *ExternalTokenizer) Shareable() bool {
	return false
}

func (et *ExternalTokenizer) Close() error {
	return et.conn.Close()
}
