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

// Package drivertesting provides fake hosts, connections, pools, and
// policies for testing the execution core and custom policy
// implementations.
package drivertesting

import (
	"context"
	"errors"
	"sync"

	"github.com/bufbuild/cqlb/balancer"
	"github.com/bufbuild/cqlb/conn"
	"github.com/bufbuild/cqlb/host"
	"github.com/bufbuild/cqlb/request"
	"github.com/bufbuild/cqlb/retry"
)

// FakeConn is an implementation of conn.Conn that replays scripted
// outcomes. With an empty script, SendStream returns an empty response.
type FakeConn struct {
	// Addr identifies the connection in test assertions.
	Addr string
	// KeyspaceErr, if set, makes every ChangeKeyspace call fail.
	KeyspaceErr error
	// PrepareErr, if set, makes every Prepare call fail.
	PrepareErr error

	mu        sync.Mutex
	script    []sendOutcome
	Sent      []request.Request
	SentOpts  []request.Options
	Keyspaces []string
	Prepared  []string
}

type sendOutcome struct {
	resp *conn.Response
	err  error
}

// EnqueueResponse appends a successful outcome to the connection's script.
func (c *FakeConn) EnqueueResponse(resp *conn.Response) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.script = append(c.script, sendOutcome{resp: resp})
}

// EnqueueError appends a failed outcome to the connection's script.
func (c *FakeConn) EnqueueError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.script = append(c.script, sendOutcome{err: err})
}

// SendStream implements the conn.Conn interface. It records the request
// and pops the next scripted outcome.
func (c *FakeConn) SendStream(_ context.Context, req request.Request, opts request.Options) (*conn.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Sent = append(c.Sent, req)
	c.SentOpts = append(c.SentOpts, opts)
	if len(c.script) == 0 {
		return &conn.Response{}, nil
	}
	outcome := c.script[0]
	c.script = c.script[1:]
	return outcome.resp, outcome.err
}

// ChangeKeyspace implements the conn.Conn interface.
func (c *FakeConn) ChangeKeyspace(_ context.Context, keyspace string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Keyspaces = append(c.Keyspaces, keyspace)
	return c.KeyspaceErr
}

// Prepare implements the conn.Conn interface.
func (c *FakeConn) Prepare(_ context.Context, statement string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Prepared = append(c.Prepared, statement)
	return c.PrepareErr
}

// FakePool is an implementation of host.ConnPool that hands out a single
// FakeConn, or fails every borrow with BorrowErr.
type FakePool struct {
	// Conn is the connection every successful Borrow returns.
	Conn *FakeConn
	// BorrowErr, if set, makes every Borrow call fail.
	BorrowErr error
	// CloseErr is returned from Close.
	CloseErr error

	mu          sync.Mutex
	BorrowCalls int
	CloseCalls  int
}

// NewFakePool returns a pool whose connection reports the given address.
func NewFakePool(addr string) *FakePool {
	return &FakePool{Conn: &FakeConn{Addr: addr}}
}

// Borrow implements the host.ConnPool interface.
func (p *FakePool) Borrow(context.Context) (conn.Conn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.BorrowCalls++
	if p.BorrowErr != nil {
		return nil, p.BorrowErr
	}
	if p.Conn == nil {
		return nil, errors.New("fake pool has no connection")
	}
	return p.Conn, nil
}

// Close implements the host.ConnPool interface.
func (p *FakePool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CloseCalls++
	return p.CloseErr
}

// NewHost returns a host backed by a FakePool, along with the pool for
// scripting.
func NewHost(addr string, options ...host.Option) (*host.Host, *FakePool) {
	pool := NewFakePool(addr)
	return host.New(addr, pool, options...), pool
}

// FakePolicy is a balancer.Policy whose plans yield a fixed host order.
type FakePolicy struct {
	// PlanErr, if set, makes every NewQueryPlan call fail.
	PlanErr error
	// DistanceResult is what Distance answers for every host.
	DistanceResult host.Distance

	mu sync.Mutex
	// +checklocks:mu
	hosts []*host.Host
	// PlanCalls counts NewQueryPlan invocations.
	PlanCalls int
	// DistanceHosts records every host passed to Distance, in order.
	DistanceHosts []*host.Host
}

// NewFakePolicy returns a FakePolicy yielding the given hosts in order.
func NewFakePolicy(hosts ...*host.Host) *FakePolicy {
	return &FakePolicy{hosts: hosts}
}

// Update replaces the plan order.
func (p *FakePolicy) Update(hosts []*host.Host) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hosts = hosts
}

// NewQueryPlan implements the balancer.Policy interface.
func (p *FakePolicy) NewQueryPlan(request.Request) (balancer.QueryPlan, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.PlanCalls++
	if p.PlanErr != nil {
		return nil, p.PlanErr
	}
	return balancer.NewStaticPlan(p.hosts...), nil
}

// Distance implements the balancer.Policy interface.
func (p *FakePolicy) Distance(target *host.Host) host.Distance {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.DistanceHosts = append(p.DistanceHosts, target)
	return p.DistanceResult
}

// UnavailableCall records one OnUnavailable invocation.
type UnavailableCall struct {
	Info            retry.RequestInfo
	Consistency     request.Consistency
	Required, Alive int
}

// ReadTimeoutCall records one OnReadTimeout invocation.
type ReadTimeoutCall struct {
	Info               retry.RequestInfo
	Consistency        request.Consistency
	Received, BlockFor int
	DataPresent        bool
}

// WriteTimeoutCall records one OnWriteTimeout invocation.
type WriteTimeoutCall struct {
	Info               retry.RequestInfo
	Consistency        request.Consistency
	Received, BlockFor int
	WriteType          request.WriteType
}

// FakeRetryPolicy is a retry.Policy that always answers Decision and
// records the arguments of every consultation.
type FakeRetryPolicy struct {
	// Decision is the verdict for every call.
	Decision retry.Decision

	mu                sync.Mutex
	UnavailableCalls  []UnavailableCall
	ReadTimeoutCalls  []ReadTimeoutCall
	WriteTimeoutCalls []WriteTimeoutCall
}

// OnUnavailable implements the retry.Policy interface.
func (p *FakeRetryPolicy) OnUnavailable(info retry.RequestInfo, consistency request.Consistency, required, alive int) retry.Decision {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.UnavailableCalls = append(p.UnavailableCalls, UnavailableCall{info, consistency, required, alive})
	return p.Decision
}

// OnReadTimeout implements the retry.Policy interface.
func (p *FakeRetryPolicy) OnReadTimeout(info retry.RequestInfo, consistency request.Consistency, received, blockFor int, dataPresent bool) retry.Decision {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ReadTimeoutCalls = append(p.ReadTimeoutCalls, ReadTimeoutCall{info, consistency, received, blockFor, dataPresent})
	return p.Decision
}

// OnWriteTimeout implements the retry.Policy interface.
func (p *FakeRetryPolicy) OnWriteTimeout(info retry.RequestInfo, consistency request.Consistency, received, blockFor int, writeType request.WriteType) retry.Decision {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.WriteTimeoutCalls = append(p.WriteTimeoutCalls, WriteTimeoutCall{info, consistency, received, blockFor, writeType})
	return p.Decision
}
