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

package retry_test

import (
	"testing"

	"github.com/bufbuild/cqlb/request"
	"github.com/bufbuild/cqlb/retry"
	"github.com/stretchr/testify/assert"
)

func TestDefaultOnReadTimeout(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name               string
		attempts           int
		received, blockFor int
		dataPresent        bool
		want               retry.Decision
	}{
		{
			name:     "enough replicas but no data",
			received: 2, blockFor: 2, dataPresent: false,
			want: retry.Retry,
		},
		{
			name:     "not enough replicas",
			received: 1, blockFor: 2, dataPresent: false,
			want: retry.Rethrow,
		},
		{
			name:     "data was present",
			received: 2, blockFor: 2, dataPresent: true,
			want: retry.Rethrow,
		},
		{
			name:     "only one retry",
			attempts: 1, received: 2, blockFor: 2, dataPresent: false,
			want: retry.Rethrow,
		},
	}
	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			info := retry.RequestInfo{Attempts: testCase.attempts}
			got := retry.Default{}.OnReadTimeout(info, request.ConsistencyQuorum,
				testCase.received, testCase.blockFor, testCase.dataPresent)
			assert.Equal(t, testCase.want, got)
		})
	}
}

func TestDefaultOnWriteTimeout(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name      string
		attempts  int
		writeType request.WriteType
		want      retry.Decision
	}{
		{name: "batch log write", writeType: request.WriteTypeBatchLog, want: retry.Retry},
		{name: "simple write", writeType: request.WriteTypeSimple, want: retry.Rethrow},
		{name: "counter write", writeType: request.WriteTypeCounter, want: retry.Rethrow},
		{name: "only one retry", attempts: 1, writeType: request.WriteTypeBatchLog, want: retry.Rethrow},
	}
	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			info := retry.RequestInfo{Attempts: testCase.attempts}
			got := retry.Default{}.OnWriteTimeout(info, request.ConsistencyOne, 0, 1, testCase.writeType)
			assert.Equal(t, testCase.want, got)
		})
	}
}

func TestDefaultOnUnavailable(t *testing.T) {
	t.Parallel()

	got := retry.Default{}.OnUnavailable(retry.RequestInfo{}, request.ConsistencyQuorum, 3, 1)
	assert.Equal(t, retry.Rethrow, got)
}

func TestFallthrough(t *testing.T) {
	t.Parallel()

	policy := retry.Fallthrough{}
	info := retry.RequestInfo{}
	assert.Equal(t, retry.Rethrow, policy.OnUnavailable(info, request.ConsistencyOne, 1, 0))
	assert.Equal(t, retry.Rethrow, policy.OnReadTimeout(info, request.ConsistencyOne, 2, 2, false))
	assert.Equal(t, retry.Rethrow, policy.OnWriteTimeout(info, request.ConsistencyOne, 0, 1, request.WriteTypeBatchLog))
}

func TestDecisionString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "rethrow", retry.Rethrow.String())
	assert.Equal(t, "retry", retry.Retry.String())
	assert.Equal(t, "ignore", retry.Ignore.String())
	assert.Equal(t, "Decision(7)", retry.Decision(7).String())
}
