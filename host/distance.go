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

package host

import "fmt"

// Distance classifies a host relative to the client, as decided by a load
// balancing policy. Their natural ordering is for "closer" distances to be
// before "farther" ones.
type Distance int

const (
	// DistanceLocal hosts get full-size connection pools and are preferred
	// by query plans.
	DistanceLocal = Distance(0)
	// DistanceRemote hosts get reduced pools and serve as failover targets.
	DistanceRemote = Distance(1)
	// DistanceIgnored hosts get no pool and never appear in query plans.
	DistanceIgnored = Distance(2)
)

func (d Distance) String() string {
	switch d {
	case DistanceLocal:
		return "local"
	case DistanceRemote:
		return "remote"
	case DistanceIgnored:
		return "ignored"
	default:
		return fmt.Sprintf("Distance(%d)", int(d))
	}
}
