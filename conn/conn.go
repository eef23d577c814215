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

// Package conn provides the representation of a logical connection to one
// cluster node. A connection is leased from a host's pool for the duration
// of a single attempt; wire framing, authentication, and socket lifecycle
// all live behind this interface.
package conn

import (
	"context"

	"github.com/bufbuild/cqlb/request"
)

// Conn is a leased transport to a single host. Implementations must be safe
// for concurrent use: many in-flight requests may share one logical
// connection via stream multiplexing.
type Conn interface {
	// SendStream writes the request on an available stream and waits for the
	// matching response frame. A returned error is either a
	// *cqlerr.ResponseError, carrying a structured server error, or a
	// transport-level failure indicating the connection (and likely the
	// host) is unhealthy.
	SendStream(ctx context.Context, req request.Request, opts request.Options) (*Response, error)
	// ChangeKeyspace switches the connection's active keyspace. It is a
	// no-op if the connection already uses the given keyspace.
	ChangeKeyspace(ctx context.Context, keyspace string) error
	// Prepare registers a statement with the node this connection is bound
	// to, so a subsequent execution of the same statement succeeds.
	Prepare(ctx context.Context, statement string) error
}

// Response is the undecoded outcome of a successfully executed request.
type Response struct {
	// KeyspaceSet is non-empty when the server reported that the request
	// changed the connection's active keyspace (a USE statement). The
	// execution core propagates it to the client session.
	KeyspaceSet string
	// PagingState, when non-empty, can be set on a follow-up request's
	// options to fetch the next page of the result set.
	PagingState []byte
	// Payload is the raw result frame body. Decoding rows is not the
	// execution core's concern.
	Payload []byte
}
