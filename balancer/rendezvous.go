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
	"container/heap"

	"github.com/bufbuild/cqlb/host"
	"github.com/bufbuild/cqlb/internal"
	"github.com/bufbuild/cqlb/request"
)

const defaultRendezvousReplicas = 2

// RendezvousOption customizes a RendezvousAware policy.
type RendezvousOption interface {
	applyRendezvous(*RendezvousAware)
}

type rendezvousOptionFunc func(*RendezvousAware)

func (f rendezvousOptionFunc) applyRendezvous(p *RendezvousAware) {
	f(p)
}

// WithReplicas sets how many hosts are placed at the front of a keyed
// plan. If unset, two are used.
func WithReplicas(count int) RendezvousOption {
	return rendezvousOptionFunc(func(p *RendezvousAware) {
		p.replicas = count
	})
}

// RendezvousAware is a Policy that uses rendezvous (highest-random-weight)
// hashing to route requests carrying a routing key to a consistent subset
// of hosts. When provided the same key, it places the same hosts at the
// front of the plan; when a host is removed, only the keys that hashed to
// it get redistributed. Requests without a routing key, and the tail of
// every plan, fall back to round-robin order.
type RendezvousAware struct {
	replicas int
	fallback RoundRobin
}

// NewRendezvousAware returns a RendezvousAware policy over the given hosts.
func NewRendezvousAware(hosts []*host.Host, options ...RendezvousOption) *RendezvousAware {
	policy := &RendezvousAware{}
	for _, opt := range options {
		opt.applyRendezvous(policy)
	}
	if policy.replicas <= 0 {
		policy.replicas = defaultRendezvousReplicas
	}
	policy.fallback.counter.Store(-1)
	policy.fallback.Update(hosts)
	return policy
}

// Update replaces the policy's host set.
func (p *RendezvousAware) Update(hosts []*host.Host) {
	p.fallback.Update(hosts)
}

// NewQueryPlan implements the Policy interface.
func (p *RendezvousAware) NewQueryPlan(req request.Request) (QueryPlan, error) {
	plan, err := p.fallback.NewQueryPlan(req)
	if err != nil {
		return nil, err
	}
	var key []byte
	if req != nil {
		key = req.RoutingKey()
	}
	if len(key) == 0 {
		return plan, nil
	}

	var rest []*host.Host
	for {
		target, ok := plan.Next()
		if !ok {
			break
		}
		rest = append(rest, target)
	}
	replicas := computeReplicas(rest, key, p.replicas)
	ordered := make([]*host.Host, 0, len(rest))
	ordered = append(ordered, replicas...)
	for _, target := range rest {
		if !containsHost(replicas, target) {
			ordered = append(ordered, target)
		}
	}
	return NewStaticPlan(ordered...), nil
}

// Distance implements the Policy interface.
func (p *RendezvousAware) Distance(target *host.Host) host.Distance {
	return p.fallback.Distance(target)
}

func containsHost(hosts []*host.Host, target *host.Host) bool {
	for _, candidate := range hosts {
		if candidate == target {
			return true
		}
	}
	return false
}

// computeReplicas selects the k hosts with the highest rank for the given
// key, using a small heap with the minimum rank at its root: each remaining
// host either beats the current minimum and replaces it, or is discarded.
func computeReplicas(hosts []*host.Host, key []byte, k int) []*host.Host {
	if len(hosts) <= k {
		ordered := make([]*host.Host, len(hosts))
		copy(ordered, hosts)
		return ordered
	}
	hostHeap := newHostHeap(hosts[:k], key)
	for i := k; i < len(hosts); i++ {
		rank := hostHeap.rank(hosts[i])
		if rank > hostHeap.ranks[0] {
			hostHeap.hosts[0] = hosts[i]
			hostHeap.ranks[0] = rank
			heap.Fix(hostHeap, 0)
		}
	}
	return hostHeap.hosts
}

type hostHeap struct {
	hosts []*host.Host
	ranks []uint32
	key   []byte
}

func newHostHeap(hosts []*host.Host, key []byte) *hostHeap {
	hostHeap := &hostHeap{
		hosts: append([]*host.Host(nil), hosts...),
		ranks: make([]uint32, len(hosts)),
		key:   key,
	}
	for i := range hostHeap.ranks {
		hostHeap.ranks[i] = hostHeap.rank(hostHeap.hosts[i])
	}
	heap.Init(hostHeap)
	return hostHeap
}

func (h *hostHeap) rank(target *host.Host) uint32 {
	hash := internal.NewMurmurHash3(0)
	_, _ = hash.Write(h.key)
	_, _ = hash.Write([]byte(target.Address()))
	return hash.Sum32()
}

func (h *hostHeap) Len() int { return len(h.hosts) }

func (h *hostHeap) Less(i, j int) bool {
	return h.ranks[i] < h.ranks[j]
}

func (h *hostHeap) Swap(i, j int) {
	h.hosts[i], h.hosts[j] = h.hosts[j], h.hosts[i]
	h.ranks[i], h.ranks[j] = h.ranks[j], h.ranks[i]
}

func (h *hostHeap) Push(any) { panic("Push should not be called") } //nolint:forbidigo // inaccessible code
func (h *hostHeap) Pop() any { panic("Pop should not be called") }  //nolint:forbidigo // inaccessible code
