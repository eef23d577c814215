// Copyright 2023-2025 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package host

import "time"

const (
	defaultReconnectBase = time.Second
	defaultReconnectMax  = 10 * time.Minute
)

// ReconnectionPolicy decides how long a down host stays excluded from
// query plans before a connection attempt may probe it again.
type ReconnectionPolicy interface {
	// Delay returns the exclusion window after the given number of
	// consecutive failed probes. Attempt zero is the window right after the
	// host first went down.
	Delay(attempt int) time.Duration
}

// NewConstantReconnection returns a policy with a fixed exclusion window.
func NewConstantReconnection(delay time.Duration) ReconnectionPolicy {
	return constantReconnection(delay)
}

type constantReconnection time.Duration

func (c constantReconnection) Delay(int) time.Duration {
	return time.Duration(c)
}

// NewExponentialReconnection returns a policy whose exclusion window starts
// at base and doubles on every consecutive failed probe, never exceeding
// ceiling. Zero base or ceiling select the defaults (1s and 10m).
func NewExponentialReconnection(base, ceiling time.Duration) ReconnectionPolicy {
	if base <= 0 {
		base = defaultReconnectBase
	}
	if ceiling <= 0 {
		ceiling = defaultReconnectMax
	}
	return &exponentialReconnection{base: base, ceiling: ceiling}
}

type exponentialReconnection struct {
	base, ceiling time.Duration
}

func (e *exponentialReconnection) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	delay := e.base
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= e.ceiling || delay < 0 { // overflow guard
			return e.ceiling
		}
	}
	if delay > e.ceiling {
		return e.ceiling
	}
	return delay
}
