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
	"errors"
	"fmt"

	"github.com/bufbuild/cqlb/balancer"
	"github.com/bufbuild/cqlb/conn"
	"github.com/bufbuild/cqlb/cqlerr"
	"github.com/bufbuild/cqlb/host"
	"github.com/bufbuild/cqlb/request"
	"github.com/bufbuild/cqlb/retry"
	"go.uber.org/zap"
)

// Policies is the policy bundle a RequestHandler runs with. A nil field is
// inherited from the handler's client; a nil retry policy with no client
// falls back to [retry.Default].
type Policies struct {
	LoadBalancer balancer.Policy
	Retry        retry.Policy
}

// RequestHandler orchestrates the lifecycle of one logical request across
// its failover and retry attempts. A handler holds no state of its own
// beyond policy references: all per-attempt state lives inside a single
// Send call. Even so, a handler serves one logical request at a time;
// create one per request and let many run concurrently.
type RequestHandler struct {
	client       *Client
	loadBalancer balancer.Policy
	retryPolicy  retry.Policy
	logger       *zap.Logger
	maxAttempts  int
}

// NewRequestHandler returns a handler for one logical request. The client
// may be nil when bootstrapping, before any topology or session state
// exists; in that case the policy bundle must carry the load balancer for
// Send to be usable ([RequestHandler.FirstConnection] needs neither).
func NewRequestHandler(client *Client, policies Policies) *RequestHandler {
	handler := &RequestHandler{
		client:       client,
		loadBalancer: policies.LoadBalancer,
		retryPolicy:  policies.Retry,
		logger:       zap.NewNop(),
	}
	if client != nil {
		if handler.loadBalancer == nil {
			handler.loadBalancer = client.loadBalancer
		}
		if handler.retryPolicy == nil {
			handler.retryPolicy = client.retryPolicy
		}
		handler.logger = client.logger
		handler.maxAttempts = client.maxAttempts
	}
	if handler.retryPolicy == nil {
		handler.retryPolicy = retry.Default{}
	}
	return handler
}

// attempt is the state of one send cycle: the request, the host it is
// bound to, and the connection leased for it. A fresh attempt is built for
// every cycle, so retries can never observe a previous cycle's binding.
type attempt struct {
	req  request.Request
	opts request.Options
	host *host.Host
	conn conn.Conn
	// cycle is the number of send cycles completed before this one.
	cycle int
}

type retryAction int

const (
	actionRethrow = retryAction(iota)
	actionRetry
	actionRetrySameConn
)

// Send executes the request: it acquires a connection to a host chosen by
// the load balancing policy, synchronizes the connection's keyspace with
// the client's, sends the request, and on failure consults the
// classification rules and the retry policy, re-entering the full cycle
// for as long as they ask for a retry.
//
// The caller observes none of this except through host health side
// effects: a request either fully succeeds with the final attempt's
// response, or fails with either a terminal error or an aggregate
// *cqlerr.NoHostAvailableError. Deadlines are imposed through ctx, which
// every blocking step observes.
func (h *RequestHandler) Send(ctx context.Context, req request.Request, opts request.Options) (*conn.Response, error) {
	if h.loadBalancer == nil {
		return nil, errors.New("request handler has no load balancing policy")
	}
	var lastErr error
	var pinned *attempt
	for cycle := 0; ; cycle++ {
		if h.maxAttempts > 0 && cycle >= h.maxAttempts {
			return nil, fmt.Errorf("request abandoned after %d attempts: %w", cycle, lastErr)
		}
		att := pinned
		pinned = nil
		if att == nil {
			target, lease, err := h.nextConnection(ctx, req)
			if err != nil {
				// No host to retry against; this is terminal.
				return nil, err
			}
			att = &attempt{req: req, opts: opts, host: target, conn: lease}
		}
		att.cycle = cycle

		resp, err := att.conn.SendStream(ctx, req, opts)
		if err == nil {
			if resp.KeyspaceSet != "" && h.client != nil {
				h.client.SetKeyspace(resp.KeyspaceSet)
			}
			att.host.SetUp()
			return resp, nil
		}

		lastErr = err
		action, terminal := h.handleError(ctx, att, err)
		switch action {
		case actionRetry:
		case actionRetrySameConn:
			pinned = att
		default:
			return nil, terminal
		}
	}
}

// nextConnection walks a fresh query plan one host at a time until a host
// yields a connection whose keyspace could be synchronized. Hosts that
// fail the considered-up predicate are skipped without counting as tried,
// keeping the aggregate error focused on hosts that genuinely rejected a
// connection. Hosts that do fail are marked down and recorded by address.
func (h *RequestHandler) nextConnection(ctx context.Context, req request.Request) (*host.Host, conn.Conn, error) {
	plan, err := h.loadBalancer.NewQueryPlan(req)
	if err != nil {
		return nil, nil, err
	}
	failures := map[string]error{}
	for {
		target, ok := plan.Next()
		if !ok {
			break
		}
		if !target.CanBeConsideredUp() {
			continue
		}
		target.SetDistance(h.loadBalancer.Distance(target))
		lease, err := target.BorrowConnection(ctx)
		if err == nil && h.client != nil {
			if keyspace := h.client.Keyspace(); keyspace != "" {
				err = lease.ChangeKeyspace(ctx, keyspace)
			}
		}
		if err != nil {
			target.SetDown()
			failures[target.Address()] = err
			h.logger.Debug("host failed to yield a connection",
				zap.String("host", target.Address()), zap.Error(err))
			continue
		}
		return target, lease, nil
	}
	return nil, nil, &cqlerr.NoHostAvailableError{Errors: failures}
}

// handleError is the failure-policy state machine (one classification per
// failed cycle). It returns the action for the send loop and, when that
// action is actionRethrow, the error the caller gets: usually the original
// send error, untouched.
func (h *RequestHandler) handleError(ctx context.Context, att *attempt, sendErr error) (retryAction, error) {
	var respErr *cqlerr.ResponseError
	if !errors.As(sendErr, &respErr) {
		// Not a server response: the connection, and likely the host, is
		// unhealthy at the transport level. Mark it down and start the
		// whole request over on a fresh plan.
		att.host.SetDown()
		h.logger.Debug("transport failure, retrying on a new query plan",
			zap.String("host", att.host.Address()), zap.Error(sendErr))
		return actionRetry, nil
	}
	switch respErr.Code {
	case cqlerr.CodeUnprepared:
		return h.reprepare(ctx, att, sendErr)
	case cqlerr.CodeOverloaded, cqlerr.CodeIsBootstrapping, cqlerr.CodeTruncateError:
		// The server signaled a transient, non-data-loss condition; retry
		// without consulting the policy.
		h.logger.Debug("server reported a transient condition, retrying",
			zap.String("host", att.host.Address()), zap.Stringer("code", respErr.Code))
		return actionRetry, nil
	}

	info := retry.RequestInfo{Request: att.req, Options: att.opts, Attempts: att.cycle}
	var decision retry.Decision
	switch respErr.Code {
	case cqlerr.CodeUnavailable:
		decision = h.retryPolicy.OnUnavailable(info, respErr.Consistency, respErr.Required, respErr.Alive)
	case cqlerr.CodeReadTimeout:
		decision = h.retryPolicy.OnReadTimeout(info, respErr.Consistency, respErr.Received, respErr.BlockFor, respErr.DataPresent)
	case cqlerr.CodeWriteTimeout:
		decision = h.retryPolicy.OnWriteTimeout(info, respErr.Consistency, respErr.Received, respErr.BlockFor, respErr.WriteType)
	default:
		return actionRethrow, sendErr
	}
	if decision == retry.Retry {
		h.logger.Debug("retry policy requested another attempt",
			zap.String("host", att.host.Address()), zap.Stringer("code", respErr.Code))
		return actionRetry, nil
	}
	return actionRethrow, sendErr
}

// reprepare handles an unprepared response: the node lost the prepared
// statement, so register it again on the same connection and replay the
// request there. Executions after a prepare must target the node holding
// the statement, hence the pinned connection rather than a fresh plan.
func (h *RequestHandler) reprepare(ctx context.Context, att *attempt, sendErr error) (retryAction, error) {
	query, ok := att.req.(*request.Query)
	if !ok {
		// Only single statements carry the text needed to re-prepare.
		return actionRethrow, sendErr
	}
	if err := att.conn.Prepare(ctx, query.Statement); err != nil {
		return actionRethrow, fmt.Errorf("re-preparing statement on %s: %w", att.host.Address(), err)
	}
	h.logger.Debug("re-prepared statement, replaying on the same host",
		zap.String("host", att.host.Address()))
	return actionRetrySameConn, nil
}
