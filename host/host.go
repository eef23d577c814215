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

// Package host models one node of the cluster: its address and placement,
// its health state as observed by the execution core, and the connection
// pool requests borrow from. Health mutations come from many concurrent
// request handlers; last writer wins, which is acceptable because the flags
// only steer host selection and are corrected by the next attempt.
package host

import (
	"context"

	"github.com/bufbuild/cqlb/conn"
	"github.com/bufbuild/cqlb/internal"
	"go.uber.org/atomic"
)

// ConnPool is the pool of connections a host hands out. Pool sizing,
// socket lifecycle, and handshakes are external concerns; the execution
// core only borrows and closes.
type ConnPool interface {
	// Borrow leases a connection. The lease is advisory: connections are
	// stream-multiplexed and may be handed to several borrowers at once.
	Borrow(ctx context.Context) (conn.Conn, error)
	// Close releases the pool and all of its connections.
	Close() error
}

// Host is one cluster node. All of its methods are safe for concurrent use.
type Host struct {
	addr       string
	datacenter string
	rack       string
	pool       ConnPool
	reconnect  ReconnectionPolicy
	clock      internal.Clock

	up atomic.Bool
	// downAt is the wall time (unix nanos) of the most recent SetDown.
	downAt atomic.Int64
	// downCount counts consecutive SetDown calls since the host was last
	// up; it widens the reconnection window.
	downCount atomic.Int32
	distance  atomic.Int32
}

// Option customizes a Host at construction.
type Option interface {
	apply(*Host)
}

type hostOptionFunc func(*Host)

func (f hostOptionFunc) apply(h *Host) {
	f(h)
}

// WithDatacenter records the datacenter label the node reported, consumed
// by datacenter-aware load balancing policies.
func WithDatacenter(name string) Option {
	return hostOptionFunc(func(h *Host) {
		h.datacenter = name
	})
}

// WithRack records the rack label the node reported.
func WithRack(name string) Option {
	return hostOptionFunc(func(h *Host) {
		h.rack = name
	})
}

// WithReconnectionPolicy sets the policy that decides when a down host
// becomes eligible for new connection attempts. If not specified, an
// exponential policy with a 1s base and 10m ceiling is used.
func WithReconnectionPolicy(policy ReconnectionPolicy) Option {
	return hostOptionFunc(func(h *Host) {
		h.reconnect = policy
	})
}

// New returns a Host for the given address, leasing connections from the
// given pool. A new host starts out up.
func New(addr string, pool ConnPool, options ...Option) *Host {
	host := &Host{
		addr:  addr,
		pool:  pool,
		clock: internal.NewRealClock(),
	}
	for _, opt := range options {
		opt.apply(host)
	}
	if host.reconnect == nil {
		host.reconnect = NewExponentialReconnection(0, 0)
	}
	host.up.Store(true)
	return host
}

// Address returns the node's address. It is stable for the life of the
// host and usable as a map key.
func (h *Host) Address() string {
	return h.addr
}

// Datacenter returns the node's datacenter label, or "" if unknown.
func (h *Host) Datacenter() string {
	return h.datacenter
}

// Rack returns the node's rack label, or "" if unknown.
func (h *Host) Rack() string {
	return h.rack
}

// IsUp reports whether the host is currently marked up.
func (h *Host) IsUp() bool {
	return h.up.Load()
}

// SetUp marks the host up, clearing any down state.
func (h *Host) SetUp() {
	h.up.Store(true)
}

// SetDown marks the host down. Repeated calls while the host stays down
// widen the reconnection window per the host's reconnection policy.
func (h *Host) SetDown() {
	if !h.up.CompareAndSwap(true, false) {
		h.downCount.Inc()
	} else {
		h.downCount.Store(0)
	}
	h.downAt.Store(h.clock.Now().UnixNano())
}

// CanBeConsideredUp reports whether the host is eligible for a connection
// attempt: it is either up, or down but past its current reconnection
// window, in which case an attempt doubles as a health probe.
func (h *Host) CanBeConsideredUp() bool {
	if h.up.Load() {
		return true
	}
	elapsed := h.clock.Now().UnixNano() - h.downAt.Load()
	return elapsed >= int64(h.reconnect.Delay(int(h.downCount.Load())))
}

// Distance returns the distance most recently assigned by a load balancing
// policy. The zero value is DistanceLocal.
func (h *Host) Distance() Distance {
	return Distance(h.distance.Load())
}

// SetDistance records the distance a load balancing policy classified this
// host at, which steers pooling behavior.
func (h *Host) SetDistance(d Distance) {
	h.distance.Store(int32(d))
}

// BorrowConnection leases a connection from the host's pool.
func (h *Host) BorrowConnection(ctx context.Context) (conn.Conn, error) {
	return h.pool.Borrow(ctx)
}

// Close releases the host's connection pool.
func (h *Host) Close() error {
	return h.pool.Close()
}
