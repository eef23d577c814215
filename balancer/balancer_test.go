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

package balancer_test

import (
	"testing"

	"github.com/bufbuild/cqlb/balancer"
	"github.com/bufbuild/cqlb/host"
	"github.com/bufbuild/cqlb/internal/drivertesting"
	"github.com/bufbuild/cqlb/request"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHosts(t *testing.T, addrs ...string) []*host.Host {
	t.Helper()
	hosts := make([]*host.Host, len(addrs))
	for i, addr := range addrs {
		hosts[i], _ = drivertesting.NewHost(addr)
	}
	return hosts
}

func drain(t *testing.T, plan balancer.QueryPlan) []*host.Host {
	t.Helper()
	var hosts []*host.Host
	for {
		target, ok := plan.Next()
		if !ok {
			// Exhausted plans stay exhausted.
			_, again := plan.Next()
			assert.False(t, again)
			return hosts
		}
		hosts = append(hosts, target)
	}
}

func addressesOf(hosts []*host.Host) []string {
	addrs := make([]string, len(hosts))
	for i, target := range hosts {
		addrs[i] = target.Address()
	}
	return addrs
}

func TestStaticPlanSinglePass(t *testing.T) {
	t.Parallel()

	hosts := newHosts(t, "a:9042", "b:9042")
	plan := balancer.NewStaticPlan(hosts...)
	assert.Equal(t, hosts, drain(t, plan))
}

func TestRoundRobin(t *testing.T) {
	t.Parallel()

	hosts := newHosts(t, "a:9042", "b:9042", "c:9042")
	policy := balancer.NewRoundRobin(hosts...)

	plan, err := policy.NewQueryPlan(nil)
	require.NoError(t, err)
	first := drain(t, plan)
	require.Len(t, first, 3)
	assert.ElementsMatch(t, hosts, first)

	// The next plan starts one position later in the same rotation.
	plan, err = policy.NewQueryPlan(nil)
	require.NoError(t, err)
	second := drain(t, plan)
	require.Len(t, second, 3)
	assert.Equal(t, first[1], second[0])
	assert.Equal(t, first[2], second[1])
	assert.Equal(t, first[0], second[2])

	assert.Equal(t, host.DistanceLocal, policy.Distance(hosts[0]))
}

func TestRoundRobinNoHosts(t *testing.T) {
	t.Parallel()

	policy := balancer.NewRoundRobin()
	_, err := policy.NewQueryPlan(nil)
	require.ErrorIs(t, err, balancer.ErrNoHosts)

	policy.Update(newHosts(t, "a:9042"))
	plan, err := policy.NewQueryPlan(nil)
	require.NoError(t, err)
	assert.Len(t, drain(t, plan), 1)
}

func TestDCAwareRoundRobin(t *testing.T) {
	t.Parallel()

	local1, _ := drivertesting.NewHost("l1:9042", host.WithDatacenter("dc1"))
	local2, _ := drivertesting.NewHost("l2:9042", host.WithDatacenter("dc1"))
	remote1, _ := drivertesting.NewHost("r1:9042", host.WithDatacenter("dc2"))
	remote2, _ := drivertesting.NewHost("r2:9042", host.WithDatacenter("dc2"))
	all := []*host.Host{local1, local2, remote1, remote2}

	policy := balancer.NewDCAwareRoundRobin("dc1", balancer.WithUsedHostsPerRemoteDC(1))
	policy.Update(all)

	plan, err := policy.NewQueryPlan(nil)
	require.NoError(t, err)
	got := drain(t, plan)
	require.Len(t, got, 3) // two locals plus one retained remote

	// Locals always come before remotes.
	assert.ElementsMatch(t, []*host.Host{local1, local2}, got[:2])
	assert.Equal(t, "dc2", got[2].Datacenter())

	assert.Equal(t, host.DistanceLocal, policy.Distance(local1))
	retained, ignored := remote1, remote2
	if policy.Distance(remote2) == host.DistanceRemote {
		retained, ignored = remote2, remote1
	}
	assert.Equal(t, host.DistanceRemote, policy.Distance(retained))
	assert.Equal(t, host.DistanceIgnored, policy.Distance(ignored))
	assert.Same(t, retained, got[2])
}

func TestDCAwareRoundRobinNoHosts(t *testing.T) {
	t.Parallel()

	policy := balancer.NewDCAwareRoundRobin("dc1")
	_, err := policy.NewQueryPlan(nil)
	require.ErrorIs(t, err, balancer.ErrNoHosts)
}

func TestRendezvousAwareKeyedPlans(t *testing.T) {
	t.Parallel()

	hosts := newHosts(t, "a:9042", "b:9042", "c:9042", "d:9042")
	policy := balancer.NewRendezvousAware(hosts, balancer.WithReplicas(2))

	keyed := &request.Query{Statement: "SELECT", Key: []byte("user:42")}
	plan, err := policy.NewQueryPlan(keyed)
	require.NoError(t, err)
	first := drain(t, plan)
	require.Len(t, first, 4)
	assert.ElementsMatch(t, hosts, first)

	// The same key always lands on the same replica set, in the same order,
	// regardless of the round-robin rotation underneath.
	for i := 0; i < 5; i++ {
		plan, err = policy.NewQueryPlan(keyed)
		require.NoError(t, err)
		again := drain(t, plan)
		assert.Equal(t, addressesOf(first[:2]), addressesOf(again[:2]))
	}

	// Removing a host that is not a replica for this key leaves the
	// replica set untouched.
	var survivors []*host.Host
	for _, target := range hosts {
		if target != first[3] {
			survivors = append(survivors, target)
		}
	}
	policy.Update(survivors)
	plan, err = policy.NewQueryPlan(keyed)
	require.NoError(t, err)
	after := drain(t, plan)
	require.Len(t, after, 3)
	assert.Equal(t, addressesOf(first[:2]), addressesOf(after[:2]))
}

func TestRendezvousAwareKeylessFallback(t *testing.T) {
	t.Parallel()

	hosts := newHosts(t, "a:9042", "b:9042", "c:9042")
	policy := balancer.NewRendezvousAware(hosts)

	plan, err := policy.NewQueryPlan(&request.Query{Statement: "SELECT"})
	require.NoError(t, err)
	first := drain(t, plan)
	assert.ElementsMatch(t, hosts, first)

	plan, err = policy.NewQueryPlan(&request.Query{Statement: "SELECT"})
	require.NoError(t, err)
	second := drain(t, plan)
	// Keyless plans rotate like plain round-robin.
	assert.Equal(t, first[1], second[0])

	assert.Equal(t, host.DistanceLocal, policy.Distance(hosts[0]))
}

func TestRendezvousAwareNoHosts(t *testing.T) {
	t.Parallel()

	policy := balancer.NewRendezvousAware(nil)
	_, err := policy.NewQueryPlan(&request.Query{Statement: "SELECT", Key: []byte("k")})
	require.ErrorIs(t, err, balancer.ErrNoHosts)
}
