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

package balancer

import (
	"sync"
	"sync/atomic"

	"github.com/bufbuild/cqlb/host"
	"github.com/bufbuild/cqlb/internal"
	"github.com/bufbuild/cqlb/request"
)

// RoundRobin is a Policy that offers hosts in sequential order, starting
// each plan one position after where the previous plan started. In order to
// mitigate the risk of a "thundering herd" scenario, the order of hosts is
// randomized each time the host set changes. All hosts are classified
// DistanceLocal.
type RoundRobin struct {
	// +checkatomic
	counter atomic.Int64

	mu sync.RWMutex
	// +checklocks:mu
	hosts []*host.Host
}

// NewRoundRobin returns a RoundRobin policy over the given hosts.
func NewRoundRobin(hosts ...*host.Host) *RoundRobin {
	policy := &RoundRobin{}
	policy.counter.Store(-1)
	policy.Update(hosts)
	return policy
}

// Update replaces the policy's host set. Topology discovery is an external
// concern; whoever maintains the cluster view calls Update on change.
func (r *RoundRobin) Update(hosts []*host.Host) {
	shuffled := make([]*host.Host, len(hosts))
	copy(shuffled, hosts)
	rnd := internal.NewRand()
	rnd.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	r.mu.Lock()
	r.hosts = shuffled
	r.mu.Unlock()
}

// NewQueryPlan implements the Policy interface.
func (r *RoundRobin) NewQueryPlan(_ request.Request) (QueryPlan, error) {
	r.mu.RLock()
	hosts := r.hosts
	r.mu.RUnlock()
	if len(hosts) == 0 {
		return nil, ErrNoHosts
	}
	start := uint64(r.counter.Add(1))
	rotated := make([]*host.Host, 0, len(hosts))
	for i := range hosts {
		rotated = append(rotated, hosts[(start+uint64(i))%uint64(len(hosts))])
	}
	return NewStaticPlan(rotated...), nil
}

// Distance implements the Policy interface.
func (r *RoundRobin) Distance(*host.Host) host.Distance {
	return host.DistanceLocal
}
