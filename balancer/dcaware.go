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

// DCAwareOption customizes a DCAwareRoundRobin policy.
type DCAwareOption interface {
	applyDCAware(*DCAwareRoundRobin)
}

type dcAwareOptionFunc func(*DCAwareRoundRobin)

func (f dcAwareOptionFunc) applyDCAware(p *DCAwareRoundRobin) {
	f(p)
}

// WithUsedHostsPerRemoteDC sets how many hosts of each remote datacenter
// are kept as failover targets. Remote hosts beyond this count are
// classified DistanceIgnored and never appear in query plans. The default
// is zero: remote datacenters are not used at all.
func WithUsedHostsPerRemoteDC(count int) DCAwareOption {
	return dcAwareOptionFunc(func(p *DCAwareRoundRobin) {
		p.usedPerRemoteDC = count
	})
}

// DCAwareRoundRobin is a Policy that prefers hosts in the configured local
// datacenter, rotating through them round-robin, and only then offers a
// bounded number of remote hosts as failover targets.
type DCAwareRoundRobin struct {
	localDC         string
	usedPerRemoteDC int

	// +checkatomic
	counter atomic.Int64

	mu sync.RWMutex
	// +checklocks:mu
	locals []*host.Host
	// +checklocks:mu
	remotes []*host.Host
	// +checklocks:mu
	usedRemote map[string]struct{}
}

// NewDCAwareRoundRobin returns a policy that treats hosts whose datacenter
// label equals localDC as local.
func NewDCAwareRoundRobin(localDC string, options ...DCAwareOption) *DCAwareRoundRobin {
	policy := &DCAwareRoundRobin{
		localDC:    localDC,
		usedRemote: map[string]struct{}{},
	}
	for _, opt := range options {
		opt.applyDCAware(policy)
	}
	policy.counter.Store(-1)
	return policy
}

// Update replaces the policy's host set.
func (p *DCAwareRoundRobin) Update(hosts []*host.Host) {
	shuffled := make([]*host.Host, len(hosts))
	copy(shuffled, hosts)
	rnd := internal.NewRand()
	rnd.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	var locals, remotes []*host.Host
	usedRemote := map[string]struct{}{}
	perDC := map[string]int{}
	for _, target := range shuffled {
		if target.Datacenter() == p.localDC {
			locals = append(locals, target)
			continue
		}
		if perDC[target.Datacenter()] < p.usedPerRemoteDC {
			perDC[target.Datacenter()]++
			remotes = append(remotes, target)
			usedRemote[target.Address()] = struct{}{}
		}
	}

	p.mu.Lock()
	p.locals, p.remotes, p.usedRemote = locals, remotes, usedRemote
	p.mu.Unlock()
}

// NewQueryPlan implements the Policy interface. The plan yields every local
// host before any remote one.
func (p *DCAwareRoundRobin) NewQueryPlan(_ request.Request) (QueryPlan, error) {
	p.mu.RLock()
	locals, remotes := p.locals, p.remotes
	p.mu.RUnlock()
	if len(locals) == 0 && len(remotes) == 0 {
		return nil, ErrNoHosts
	}
	start := uint64(p.counter.Add(1))
	ordered := make([]*host.Host, 0, len(locals)+len(remotes))
	for i := range locals {
		ordered = append(ordered, locals[(start+uint64(i))%uint64(len(locals))])
	}
	for i := range remotes {
		ordered = append(ordered, remotes[(start+uint64(i))%uint64(len(remotes))])
	}
	return NewStaticPlan(ordered...), nil
}

// Distance implements the Policy interface: local-DC hosts are
// DistanceLocal, the retained remote hosts are DistanceRemote, and all
// other remotes are DistanceIgnored.
func (p *DCAwareRoundRobin) Distance(target *host.Host) host.Distance {
	if target.Datacenter() == p.localDC {
		return host.DistanceLocal
	}
	p.mu.RLock()
	_, used := p.usedRemote[target.Address()]
	p.mu.RUnlock()
	if used {
		return host.DistanceRemote
	}
	return host.DistanceIgnored
}
