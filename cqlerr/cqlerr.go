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

// Package cqlerr defines the error taxonomy of the execution core: coded
// server response errors, transport-level connection errors, and the
// aggregate error returned when no host could serve a request.
package cqlerr

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/bufbuild/cqlb/request"
	"go.uber.org/multierr"
)

// Code is a server error code from an ERROR response frame. The values
// match the CQL binary protocol.
type Code uint32

const (
	CodeServerError     = Code(0x0000)
	CodeProtocolError   = Code(0x000A)
	CodeBadCredentials  = Code(0x0100)
	CodeUnavailable     = Code(0x1000)
	CodeOverloaded      = Code(0x1001)
	CodeIsBootstrapping = Code(0x1002)
	CodeTruncateError   = Code(0x1003)
	CodeWriteTimeout    = Code(0x1100)
	CodeReadTimeout     = Code(0x1200)
	CodeSyntaxError     = Code(0x2000)
	CodeUnauthorized    = Code(0x2100)
	CodeInvalid         = Code(0x2200)
	CodeConfigError     = Code(0x2300)
	CodeAlreadyExists   = Code(0x2400)
	CodeUnprepared      = Code(0x2500)
)

func (c Code) String() string {
	switch c {
	case CodeServerError:
		return "server error"
	case CodeProtocolError:
		return "protocol error"
	case CodeBadCredentials:
		return "bad credentials"
	case CodeUnavailable:
		return "unavailable"
	case CodeOverloaded:
		return "overloaded"
	case CodeIsBootstrapping:
		return "is bootstrapping"
	case CodeTruncateError:
		return "truncate error"
	case CodeWriteTimeout:
		return "write timeout"
	case CodeReadTimeout:
		return "read timeout"
	case CodeSyntaxError:
		return "syntax error"
	case CodeUnauthorized:
		return "unauthorized"
	case CodeInvalid:
		return "invalid query"
	case CodeConfigError:
		return "config error"
	case CodeAlreadyExists:
		return "already exists"
	case CodeUnprepared:
		return "unprepared statement"
	default:
		return fmt.Sprintf("Code(0x%04X)", uint32(c))
	}
}

// ResponseError is a structured error the server returned in an ERROR
// frame. Only the fields relevant to the given Code are populated; the
// classification table in the request handler switches on Code and passes
// the relevant fields to the retry policy.
type ResponseError struct {
	// Code identifies the failure kind.
	Code Code
	// Message is the human-readable text from the frame.
	Message string
	// Consistency is the consistency level of the failed request, for
	// unavailable and timeout errors.
	Consistency request.Consistency
	// Required and Alive describe an unavailable error: how many replicas
	// the consistency level required and how many were known alive.
	Required, Alive int
	// Received and BlockFor describe a timeout error: how many replicas
	// responded before the coordinator gave up, and how many it was
	// waiting for.
	Received, BlockFor int
	// DataPresent reports, for a read timeout, whether the replica asked
	// for data had responded.
	DataPresent bool
	// WriteType describes, for a write timeout, the kind of write.
	WriteType request.WriteType
	// PreparedID is the unknown statement id from an unprepared error.
	PreparedID []byte
}

func (e *ResponseError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server responded with %v error", e.Code)
	}
	return fmt.Sprintf("server responded with %v error: %s", e.Code, e.Message)
}

// ConnectionError is a transport-level failure on a connection to one host:
// a socket error, a protocol desync, an abrupt close. Its presence means
// the host should be considered unhealthy.
type ConnectionError struct {
	// Address identifies the host the connection was bound to.
	Address string
	// Err is the underlying failure.
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection to %s failed: %v", e.Address, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// NoHostAvailableError aggregates the individual failure of every host that
// was attempted for a request, keyed by host address. Hosts skipped for
// being down never appear; only hosts that genuinely rejected a connection
// (or failed a keyspace change) do.
type NoHostAvailableError struct {
	// Errors maps a host address to the error it produced.
	Errors map[string]error
}

func (e *NoHostAvailableError) Error() string {
	if len(e.Errors) == 0 {
		return "no host was available to execute the request (no hosts were attempted)"
	}
	parts := make([]string, 0, len(e.Errors))
	for _, addr := range e.sortedAddresses() {
		parts = append(parts, fmt.Sprintf("%s: %v", addr, e.Errors[addr]))
	}
	return fmt.Sprintf("no host was available to execute the request, %d host(s) tried: %s",
		len(e.Errors), strings.Join(parts, "; "))
}

// Combined returns the per-host failures merged into a single error value,
// so callers can match individual causes with errors.Is and errors.As.
func (e *NoHostAvailableError) Combined() error {
	errs := make([]error, 0, len(e.Errors))
	for _, addr := range e.sortedAddresses() {
		errs = append(errs, e.Errors[addr])
	}
	return multierr.Combine(errs...)
}

func (e *NoHostAvailableError) sortedAddresses() []string {
	addrs := make([]string, 0, len(e.Errors))
	for addr := range e.Errors {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)
	return addrs
}

// IsResponse reports whether err carries a structured server response
// error, as opposed to a transport-level failure.
func IsResponse(err error) bool {
	var respErr *ResponseError
	return errors.As(err, &respErr)
}
