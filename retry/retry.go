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

// Package retry decides what the execution core does with a failed request:
// try again, surface the error, or ignore it. Policies are only consulted
// for server-reported unavailable and timeout errors; transport failures
// and transient server conditions are retried unconditionally by the core
// itself.
package retry

import (
	"fmt"

	"github.com/bufbuild/cqlb/request"
)

// Decision is a retry policy's verdict on a failed request. The zero value
// is Rethrow, so an unset decision surfaces the error.
type Decision int

const (
	// Rethrow surfaces the original error to the caller.
	Rethrow = Decision(0)
	// Retry re-executes the request through a full new send cycle,
	// including fresh host selection.
	Retry = Decision(1)
	// Ignore abandons the request without re-executing it; the original
	// error is still what the caller observes.
	Ignore = Decision(2)
)

func (d Decision) String() string {
	switch d {
	case Rethrow:
		return "rethrow"
	case Retry:
		return "retry"
	case Ignore:
		return "ignore"
	default:
		return fmt.Sprintf("Decision(%d)", int(d))
	}
}

// RequestInfo describes the failed request to a policy.
type RequestInfo struct {
	// Request is the unit of work that failed.
	Request request.Request
	// Options are the per-attempt options it was sent with.
	Options request.Options
	// Attempts is the number of send cycles already completed for this
	// logical request, so a policy can bound its own retries.
	Attempts int
}

// Policy decides whether a failed request is retried. Implementations must
// be safe for concurrent use and should eventually answer Rethrow: the
// execution core places no bound of its own on the retry chain unless one
// is configured.
type Policy interface {
	// OnUnavailable handles an unavailable error: the consistency level
	// required more replicas than were alive.
	OnUnavailable(info RequestInfo, consistency request.Consistency, required, alive int) Decision
	// OnReadTimeout handles a read timeout: received replicas answered out
	// of the blockFor the coordinator waited on, and dataPresent reports
	// whether the data replica responded.
	OnReadTimeout(info RequestInfo, consistency request.Consistency, received, blockFor int, dataPresent bool) Decision
	// OnWriteTimeout handles a write timeout for the given write type.
	OnWriteTimeout(info RequestInfo, consistency request.Consistency, received, blockFor int, writeType request.WriteType) Decision
}

// Default is the stock policy: it retries a failed request at most once,
// and only when the failure mode suggests the retry can succeed.
//
//   - Read timeout: retry when enough replicas responded but the data was
//     not yet present, which usually means the coordinator timed out
//     waiting on a repair.
//   - Write timeout: retry only a failed batch-log write, which the
//     coordinator replays idempotently.
//   - Unavailable: rethrow; a retry on the same coordinator cannot
//     conjure up replicas.
type Default struct{}

var _ Policy = Default{}

// OnUnavailable implements the Policy interface.
func (Default) OnUnavailable(RequestInfo, request.Consistency, int, int) Decision {
	return Rethrow
}

// OnReadTimeout implements the Policy interface.
func (Default) OnReadTimeout(info RequestInfo, _ request.Consistency, received, blockFor int, dataPresent bool) Decision {
	if info.Attempts > 0 {
		return Rethrow
	}
	if received >= blockFor && !dataPresent {
		return Retry
	}
	return Rethrow
}

// OnWriteTimeout implements the Policy interface.
func (Default) OnWriteTimeout(info RequestInfo, _ request.Consistency, _, _ int, writeType request.WriteType) Decision {
	if info.Attempts > 0 {
		return Rethrow
	}
	if writeType == request.WriteTypeBatchLog {
		return Retry
	}
	return Rethrow
}

// Fallthrough is a policy that never retries, for callers that prefer to
// handle every failure themselves.
type Fallthrough struct{}

var _ Policy = Fallthrough{}

// OnUnavailable implements the Policy interface.
func (Fallthrough) OnUnavailable(RequestInfo, request.Consistency, int, int) Decision {
	return Rethrow
}

// OnReadTimeout implements the Policy interface.
func (Fallthrough) OnReadTimeout(RequestInfo, request.Consistency, int, int, bool) Decision {
	return Rethrow
}

// OnWriteTimeout implements the Policy interface.
func (Fallthrough) OnWriteTimeout(RequestInfo, request.Consistency, int, int, request.WriteType) Decision {
	return Rethrow
}
