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

package host_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bufbuild/cqlb/host"
	"github.com/bufbuild/cqlb/internal/clocktest"
	"github.com/bufbuild/cqlb/internal/drivertesting"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostStartsUp(t *testing.T) {
	t.Parallel()

	target, _ := drivertesting.NewHost("10.0.0.1:9042")
	assert.True(t, target.IsUp())
	assert.True(t, target.CanBeConsideredUp())
	assert.Equal(t, "10.0.0.1:9042", target.Address())
}

func TestHostReconnectionWindow(t *testing.T) {
	t.Parallel()

	clock := clocktest.NewFakeClock()
	target, _ := drivertesting.NewHost("10.0.0.1:9042",
		host.WithReconnectionPolicy(host.NewExponentialReconnection(time.Second, time.Minute)))
	host.SetClock(target, clock)

	target.SetDown()
	assert.False(t, target.IsUp())
	assert.False(t, target.CanBeConsideredUp())

	// First window is the base delay.
	clock.Advance(time.Second)
	assert.True(t, target.CanBeConsideredUp())
	assert.False(t, target.IsUp())

	// A second failure while down doubles the window.
	target.SetDown()
	clock.Advance(time.Second)
	assert.False(t, target.CanBeConsideredUp())
	clock.Advance(time.Second)
	assert.True(t, target.CanBeConsideredUp())

	// Coming back up clears everything.
	target.SetUp()
	assert.True(t, target.IsUp())
	target.SetDown()
	clock.Advance(time.Second)
	assert.True(t, target.CanBeConsideredUp())
}

func TestHostDistance(t *testing.T) {
	t.Parallel()

	target, _ := drivertesting.NewHost("10.0.0.1:9042")
	assert.Equal(t, host.DistanceLocal, target.Distance())
	target.SetDistance(host.DistanceRemote)
	assert.Equal(t, host.DistanceRemote, target.Distance())
}

func TestHostMetadata(t *testing.T) {
	t.Parallel()

	target, _ := drivertesting.NewHost("10.0.0.1:9042",
		host.WithDatacenter("dc1"), host.WithRack("r2"))
	assert.Equal(t, "dc1", target.Datacenter())
	assert.Equal(t, "r2", target.Rack())
}

func TestHostBorrowConnection(t *testing.T) {
	t.Parallel()

	target, pool := drivertesting.NewHost("10.0.0.1:9042")
	lease, err := target.BorrowConnection(context.Background())
	require.NoError(t, err)
	assert.Same(t, pool.Conn, lease)

	errBorrow := errors.New("pool exhausted")
	pool.BorrowErr = errBorrow
	_, err = target.BorrowConnection(context.Background())
	require.ErrorIs(t, err, errBorrow)
}

func TestConstantReconnection(t *testing.T) {
	t.Parallel()

	policy := host.NewConstantReconnection(5 * time.Second)
	assert.Equal(t, 5*time.Second, policy.Delay(0))
	assert.Equal(t, 5*time.Second, policy.Delay(10))
}

func TestExponentialReconnection(t *testing.T) {
	t.Parallel()

	policy := host.NewExponentialReconnection(time.Second, time.Minute)
	assert.Equal(t, time.Second, policy.Delay(0))
	assert.Equal(t, 2*time.Second, policy.Delay(1))
	assert.Equal(t, 32*time.Second, policy.Delay(5))
	// The window never exceeds the ceiling, even for absurd counts.
	assert.Equal(t, time.Minute, policy.Delay(6))
	assert.Equal(t, time.Minute, policy.Delay(500))

	// Zero values select the defaults.
	policy = host.NewExponentialReconnection(0, 0)
	assert.Equal(t, time.Second, policy.Delay(0))
	assert.Equal(t, 10*time.Minute, policy.Delay(60))
}
