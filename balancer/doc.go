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

// Package balancer provides host selection for the execution core.
//
// This package defines the core interface, [Policy], which produces an
// ordered, single-pass sequence of candidate hosts (a query plan) for one
// request and classifies each host's distance from the client.
//
// This package also contains several implementations, all in the form of
// functions whose names start with "New": plain round-robin, a
// datacenter-aware variant that prefers local hosts, and a rendezvous-hash
// variant that routes keyed requests to a consistent subset of hosts.
// Custom [Policy] implementations can use host metadata (datacenter, rack)
// or request routing keys to implement other orderings, such as
// token-range ownership when the partitioner is known.
//
// A policy only orders hosts; it does not track their health. The request
// handler checks each candidate's eligibility as it walks the plan, so a
// policy may freely offer hosts that are currently down.
package balancer
