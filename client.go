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

package cqlb

import (
	"context"
	"sync"

	"github.com/bufbuild/cqlb/balancer"
	"github.com/bufbuild/cqlb/conn"
	"github.com/bufbuild/cqlb/host"
	"github.com/bufbuild/cqlb/retry"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ClientOption is an option used to customize the behavior of a Client.
type ClientOption interface {
	apply(*clientOptions)
}

// WithHosts sets the contact-point hosts the client starts from. They are
// used by the bootstrap path ([RequestHandler.FirstConnection] via
// [Client.Connect]) and closed by [Client.Close].
func WithHosts(hosts ...*host.Host) ClientOption {
	return clientOptionFunc(func(opts *clientOptions) {
		opts.hosts = append(opts.hosts, hosts...)
	})
}

// WithLoadBalancingPolicy sets the load balancing policy handlers created
// from this client use by default. There is no usable fallback: a handler
// with no policy, neither its own nor its client's, cannot send.
func WithLoadBalancingPolicy(policy balancer.Policy) ClientOption {
	return clientOptionFunc(func(opts *clientOptions) {
		opts.loadBalancer = policy
	})
}

// WithRetryPolicy sets the retry policy handlers created from this client
// use by default. If not specified, [retry.Default] is used.
func WithRetryPolicy(policy retry.Policy) ClientOption {
	return clientOptionFunc(func(opts *clientOptions) {
		opts.retryPolicy = policy
	})
}

// WithLogger sets a zap logger the client and its handlers record
// acquisition failures and retry decisions to. If not specified, logging
// is disabled.
func WithLogger(logger *zap.Logger) ClientOption {
	return clientOptionFunc(func(opts *clientOptions) {
		opts.logger = logger
	})
}

// WithKeyspace sets the keyspace the session starts in.
func WithKeyspace(keyspace string) ClientOption {
	return clientOptionFunc(func(opts *clientOptions) {
		opts.keyspace = keyspace
	})
}

// WithMaxAttempts caps the number of send cycles handlers run for one
// logical request, as a guard against retry policies that never give up.
// Zero, the default, means no cap: policies are trusted to eventually
// answer rethrow.
func WithMaxAttempts(limit int) ClientOption {
	return clientOptionFunc(func(opts *clientOptions) {
		opts.maxAttempts = limit
	})
}

type clientOptionFunc func(*clientOptions)

func (f clientOptionFunc) apply(opts *clientOptions) {
	f(opts)
}

type clientOptions struct {
	hosts        []*host.Host
	loadBalancer balancer.Policy
	retryPolicy  retry.Policy
	logger       *zap.Logger
	keyspace     string
	maxAttempts  int
}

func (opts *clientOptions) applyDefaults() {
	if opts.retryPolicy == nil {
		opts.retryPolicy = retry.Default{}
	}
	if opts.logger == nil {
		opts.logger = zap.NewNop()
	}
}

// Client holds the process-wide state of one driver session: the current
// keyspace, the contact-point hosts, and the defaults handlers inherit.
// All methods are safe for concurrent use.
type Client struct {
	hosts        []*host.Host
	loadBalancer balancer.Policy
	retryPolicy  retry.Policy
	logger       *zap.Logger
	maxAttempts  int

	mu sync.RWMutex
	// +checklocks:mu
	keyspace string
}

// NewClient returns a new Client that uses the given options.
func NewClient(options ...ClientOption) *Client {
	var opts clientOptions
	for _, opt := range options {
		opt.apply(&opts)
	}
	opts.applyDefaults()
	return &Client{
		hosts:        opts.hosts,
		loadBalancer: opts.loadBalancer,
		retryPolicy:  opts.retryPolicy,
		logger:       opts.logger,
		maxAttempts:  opts.maxAttempts,
		keyspace:     opts.keyspace,
	}
}

// Keyspace returns the session's current keyspace, or "" if none is set.
func (c *Client) Keyspace() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.keyspace
}

// SetKeyspace records a keyspace change. Handlers call this when a response
// reports the server switched the active keyspace; two requests racing a
// change resolve last-writer-wins.
func (c *Client) SetKeyspace(keyspace string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keyspace = keyspace
}

// Hosts returns the client's contact-point hosts.
func (c *Client) Hosts() []*host.Host {
	return c.hosts
}

// NewHandler returns a RequestHandler bound to this client, inheriting its
// policies, logger, and attempt cap. Create one per logical request.
func (c *Client) NewHandler() *RequestHandler {
	return NewRequestHandler(c, Policies{})
}

// Connect verifies that some contact point is reachable by borrowing one
// connection through the bootstrap path, returning it with its host.
func (c *Client) Connect(ctx context.Context) (conn.Conn, *host.Host, error) {
	return c.NewHandler().FirstConnection(ctx, c.hosts)
}

// Close releases every contact-point host's connection pool. It returns
// the first error encountered, after all pools have been closed.
func (c *Client) Close() error {
	var group errgroup.Group
	for _, target := range c.hosts {
		group.Go(target.Close)
	}
	return group.Wait()
}
