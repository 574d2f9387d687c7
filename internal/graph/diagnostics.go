// Copyright 2026 Oliver Eikemeier. All Rights Reserved.
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

package graph

import (
	"fmt"
	"sync"

	"fillmore-labs.com/asyncplan/internal/symbol"
)

// Level is the severity of a [Diagnostic].
type Level uint8

const (
	// LevelInfo records an ignored declaration with its reason.
	LevelInfo Level = iota

	// LevelWarning records a corrected conflict.
	LevelWarning
)

// String returns the name of the level.
func (l Level) String() string {
	if l == LevelWarning {
		return "warning"
	}

	return "info"
}

// Diagnostic is one attributed entry of the diagnostic log.
type Diagnostic struct {
	Key     symbol.Key
	Level   Level
	Message string
}

// String formats the diagnostic for display.
func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s", d.Level, d.Key, d.Message)
}

// Diagnostics is an ordered, concurrency-safe diagnostic log.
type Diagnostics struct {
	mu      sync.Mutex
	entries []Diagnostic
}

// Add appends an entry.
func (d *Diagnostics) Add(key symbol.Key, level Level, format string, args ...any) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.entries = append(d.entries, Diagnostic{Key: key, Level: level, Message: fmt.Sprintf(format, args...)})
}

// Entries returns a copy of all entries in insertion order.
func (d *Diagnostics) Entries() []Diagnostic {
	d.mu.Lock()
	defer d.mu.Unlock()

	entries := make([]Diagnostic, len(d.entries))
	copy(entries, d.entries)

	return entries
}

// Warnings returns the warnings in insertion order.
func (d *Diagnostics) Warnings() []Diagnostic {
	var warnings []Diagnostic

	for _, e := range d.Entries() {
		if e.Level == LevelWarning {
			warnings = append(warnings, e)
		}
	}

	return warnings
}
