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
	"errors"

	"github.com/bufbuild/cqlb/host"
	"github.com/bufbuild/cqlb/request"
)

// ErrNoHosts is returned from NewQueryPlan when a policy knows of no hosts,
// for example before any topology has been observed.
var ErrNoHosts = errors.New("load balancing policy has no hosts to offer")

// Policy produces query plans and classifies host distance. Implementations
// must be safe for concurrent use: many request handlers ask for plans at
// once.
type Policy interface {
	// NewQueryPlan returns the ordered sequence of candidate hosts to try
	// for the given request. The returned plan is lazy and single-pass; it
	// must only be consumed by the caller that requested it.
	NewQueryPlan(req request.Request) (QueryPlan, error)
	// Distance classifies how near the given host is to the client,
	// which steers its pooling behavior.
	Distance(target *host.Host) host.Distance
}

// QueryPlan is a single-pass, stateful sequence of candidate hosts. It is
// not safe for concurrent use and cannot be restarted; request a new plan
// for every selection pass.
type QueryPlan interface {
	// Next returns the next candidate host, or false when the plan is
	// exhausted.
	Next() (*host.Host, bool)
}

// NewStaticPlan returns a plan that yields the given hosts in order. It is
// useful for fixed-order policies and for tests.
func NewStaticPlan(hosts ...*host.Host) QueryPlan {
	return &staticPlan{hosts: hosts}
}

type staticPlan struct {
	hosts []*host.Host
	next  int
}

func (p *staticPlan) Next() (*host.Host, bool) {
	if p.next >= len(p.hosts) {
		return nil, false
	}
	target := p.hosts[p.next]
	p.next++
	return target, true
}
