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

package request

import "fmt"

// Consistency is the replica-acknowledgment requirement for a request. The
// values match the CQL binary protocol encoding.
type Consistency uint16

const (
	ConsistencyAny         = Consistency(0x00)
	ConsistencyOne         = Consistency(0x01)
	ConsistencyTwo         = Consistency(0x02)
	ConsistencyThree       = Consistency(0x03)
	ConsistencyQuorum      = Consistency(0x04)
	ConsistencyAll         = Consistency(0x05)
	ConsistencyLocalQuorum = Consistency(0x06)
	ConsistencyEachQuorum  = Consistency(0x07)
	ConsistencySerial      = Consistency(0x08)
	ConsistencyLocalSerial = Consistency(0x09)
	ConsistencyLocalOne    = Consistency(0x0A)
)

func (c Consistency) String() string {
	switch c {
	case ConsistencyAny:
		return "ANY"
	case ConsistencyOne:
		return "ONE"
	case ConsistencyTwo:
		return "TWO"
	case ConsistencyThree:
		return "THREE"
	case ConsistencyQuorum:
		return "QUORUM"
	case ConsistencyAll:
		return "ALL"
	case ConsistencyLocalQuorum:
		return "LOCAL_QUORUM"
	case ConsistencyEachQuorum:
		return "EACH_QUORUM"
	case ConsistencySerial:
		return "SERIAL"
	case ConsistencyLocalSerial:
		return "LOCAL_SERIAL"
	case ConsistencyLocalOne:
		return "LOCAL_ONE"
	default:
		return fmt.Sprintf("Consistency(%d)", uint16(c))
	}
}

// WriteType describes the kind of write a timed-out write request was
// performing, as reported by the server. The values match the strings the
// protocol uses.
type WriteType string

const (
	WriteTypeSimple        = WriteType("SIMPLE")
	WriteTypeBatch         = WriteType("BATCH")
	WriteTypeUnloggedBatch = WriteType("UNLOGGED_BATCH")
	WriteTypeCounter       = WriteType("COUNTER")
	WriteTypeBatchLog      = WriteType("BATCH_LOG")
	WriteTypeCAS           = WriteType("CAS")
)
