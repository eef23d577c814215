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

// Package request defines the unit of work the execution core carries to a
// cluster node, along with the per-attempt options that accompany it. The
// core treats requests as opaque and immutable: the same value is reused,
// unmodified, across every retry of one logical request.
package request

// Request is one unit of work: a single query or a batch. The execution
// core never inspects a request beyond its routing key; parsing and result
// decoding happen in other layers.
type Request interface {
	// RoutingKey returns the serialized partition key for this request, used
	// by load balancing policies that route to replicas. It returns nil when
	// the key is not known, in which case policies fall back to their
	// keyless ordering.
	RoutingKey() []byte
}

// Query is a single statement with optional already-serialized bound values.
type Query struct {
	// Statement is the query string, e.g. a SELECT or INSERT.
	Statement string
	// Values are the serialized bound values, in marker order. Serialization
	// is not this package's concern; values pass through untouched.
	Values [][]byte
	// Key is the serialized partition key, if known.
	Key []byte
}

// RoutingKey implements the Request interface.
func (q *Query) RoutingKey() []byte {
	return q.Key
}

// Batch is a set of statements executed as one atomic (or unlogged) unit.
type Batch struct {
	// Statements are the query strings in execution order.
	Statements []string
	// Values holds the serialized bound values for each statement, parallel
	// to Statements.
	Values [][][]byte
	// Key is the serialized partition key, if known.
	Key []byte
}

// RoutingKey implements the Request interface.
func (b *Batch) RoutingKey() []byte {
	return b.Key
}

// Options carries the per-attempt execution options for a request. A zero
// value is valid; the connection layer applies protocol defaults for any
// unset field.
type Options struct {
	// Consistency is the replica-acknowledgment requirement for the request.
	Consistency Consistency
	// SerialConsistency applies to the serial phase of lightweight
	// transactions, if any.
	SerialConsistency Consistency
	// PageSize limits the number of rows returned in one response. Zero
	// means the server default.
	PageSize int
	// PagingState resumes a previous result set when non-empty.
	PagingState []byte
}
