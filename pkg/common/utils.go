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
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Random is a mutex-guarded random source, safe for concurrent callers
type Random struct {
	randomGenerator *rand.Rand
	randMutex       sync.Mutex
}

func NewRandom(seed int64) *Random {
	src := rand.NewSource(seed)
	return &Random{randomGenerator: rand.New(src)}
}

// NewTimeSeededRandom returns a Random seeded from the wall clock
func NewTimeSeededRandom() *Random {
	return NewRandom(time.Now().UnixNano())
}

// RandomSeed returns a random seed for sampling
func (r *Random) RandomSeed() uint64 {
	r.randMutex.Lock()
	defer r.randMutex.Unlock()

	return r.randomGenerator.Uint64()
}

// Returns an integer between min and max (included)
func (r *Random) RandomInt(min int, max int) int {
	r.randMutex.Lock()
	defer r.randMutex.Unlock()

	return r.randomGenerator.Intn(max-min+1) + min
}

// GenerateUUIDString generates a UUID string under a lock
func (r *Random) GenerateUUIDString() string {
	r.randMutex.Lock()
	defer r.randMutex.Unlock()
	return uuid.NewString()
}
