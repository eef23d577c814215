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

	"github.com/bufbuild/cqlb/conn"
	"github.com/bufbuild/cqlb/cqlerr"
	"github.com/bufbuild/cqlb/host"
)

// FirstConnection is the bootstrap entry point, used before any topology or
// load balancing policy exists: it tries the given hosts strictly in order
// and returns the first connection successfully borrowed, along with its
// host. If every host fails, it returns a *cqlerr.NoHostAvailableError
// aggregating each host's borrow failure. Unlike the send path, it mutates
// no host health state; there is no topology yet for that state to steer.
func (h *RequestHandler) FirstConnection(ctx context.Context, hosts []*host.Host) (conn.Conn, *host.Host, error) {
	failures := map[string]error{}
	for _, target := range hosts {
		lease, err := target.BorrowConnection(ctx)
		if err != nil {
			failures[target.Address()] = err
			continue
		}
		return lease, target, nil
	}
	return nil, nil, &cqlerr.NoHostAvailableError{Errors: failures}
}
