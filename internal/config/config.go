// Copyright 2025-2026 Oliver Eikemeier. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package config

// Flag represents a behavioral option of the decision engine.
type Flag uint8

const (
	// ScanAllBodies scans every function body, not only those pinned async or left to the engine.
	ScanAllBodies Flag = 1 << iota

	// UseCancellation threads a context through generated counterparts.
	UseCancellation

	// ScanMissing seeds asynchronous members a type lacks compared to its interfaces.
	ScanMissing

	// PreserveReturnType keeps declared results when every converted call returns a plain value.
	PreserveReturnType

	// CallForwarding forwards to the synchronous declaration when nothing converts.
	CallForwarding

	// IncludeGenerated specifies whether to include analysis of generated files.
	IncludeGenerated
)

// Behavior holds the enabled [Flag] values.
type Behavior = BitMask[Flag]

// DefaultBehavior returns the behavior used when nothing is configured.
func DefaultBehavior() Behavior {
	return NewBitMask(UseCancellation, ScanMissing)
}

// String returns the flag name used on the command line.
func (f Flag) String() string {
	switch f {
	case ScanAllBodies:
		return "scan-all"
	case UseCancellation:
		return "cancellation"
	case ScanMissing:
		return "missing"
	case PreserveReturnType:
		return "preserve-return-type"
	case CallForwarding:
		return "forward"
	case IncludeGenerated:
		return "generated"
	default:
		return "invalid"
	}
}
