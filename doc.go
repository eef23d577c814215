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

// Package cqlb is the request-execution core of a client driver for a
// distributed CQL database. Given a request, it obtains a healthy
// connection to some cluster node chosen by a pluggable load balancing
// policy, sends the request, interprets the response or error, and decides,
// per a pluggable retry policy, whether to retry on the same or a different
// host, fail over, or surface the error to the caller.
//
// To execute a request, create a [RequestHandler] with [NewRequestHandler]
// and call its Send method. One handler serves exactly one logical request
// at a time, including all of its internal retries; create a handler per
// request. Handlers are cheap: they hold only policy references.
//
// A [Client] holds the state shared across requests: the current keyspace,
// the contact-point hosts, and the default policies handlers inherit. The
// layers this package deliberately does not contain are wire framing,
// authentication, connection pooling, and topology discovery; they are
// consumed through the interfaces in the conn, host, and balancer
// packages.
package cqlb
