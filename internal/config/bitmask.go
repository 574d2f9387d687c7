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

import (
	"math/bits"
	"strconv"
	"strings"
)

// BitMask is a set of single-bit flags.
type BitMask[T ~uint8 | ~uint16 | ~uint32] struct {
	value T
}

// NewBitMask returns a [BitMask] with flags enabled.
func NewBitMask[T ~uint8 | ~uint16 | ~uint32](flags ...T) BitMask[T] {
	var b BitMask[T]
	for _, flag := range flags {
		b.Enable(flag)
	}

	return b
}

// Set enables or disables flag.
func (b *BitMask[T]) Set(flag T, value bool) {
	if value {
		b.Enable(flag)
	} else {
		b.Disable(flag)
	}
}

// Enable sets flag.
func (b *BitMask[T]) Enable(flag T) { b.value |= flag }

// Disable clears flag.
func (b *BitMask[T]) Disable(flag T) { b.value &^= flag }

// Enabled reports whether flag is set.
func (b BitMask[T]) Enabled(flag T) bool { return b.value&flag != 0 }

// All yields the enabled flags in ascending order.
func (b BitMask[T]) All(yield func(T) bool) {
	for v := uint32(b.value); v != 0; v &= v - 1 {
		if !yield(T(1) << bits.TrailingZeros32(v)) {
			return
		}
	}
}

// String lists the names of the enabled flags, separated by commas.
func (b BitMask[T]) String() string {
	var sb strings.Builder

	for flag := range b.All {
		if sb.Len() > 0 {
			sb.WriteByte(',')
		}

		sb.WriteString(name(flag))
	}

	return sb.String()
}

func name[T ~uint8 | ~uint16 | ~uint32](flag T) string {
	if s, ok := any(flag).(interface{ String() string }); ok {
		return s.String()
	}

	return "0x" + strconv.FormatUint(uint64(flag), 16)
}
