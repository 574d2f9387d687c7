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

package policy

import (
	"fmt"
	"strings"
)

// Cancellation is the flagset describing how a cancellation parameter is generated.
type Cancellation uint8

const (
	// CancelOptional generates an optional cancellation parameter.
	CancelOptional Cancellation = 1 << iota

	// CancelRequired generates a required cancellation parameter.
	CancelRequired

	// CancelForwardNone generates an overload that forwards no cancellation.
	CancelForwardNone

	// CancelSealedForwardNone is [CancelForwardNone] for non-overridable declarations only.
	CancelSealedForwardNone

	// CancelGuarded adds cancellation checks ahead of the body.
	CancelGuarded
)

var cancellationNames = [...]struct {
	flag Cancellation
	name string
}{
	{CancelOptional, "optional"},
	{CancelRequired, "required"},
	{CancelForwardNone, "forward-none"},
	{CancelSealedForwardNone, "sealed-forward-none"},
	{CancelGuarded, "guarded"},
}

// Has reports whether all bits of flag are set.
func (c Cancellation) Has(flag Cancellation) bool { return c&flag == flag }

// String returns the flags as a comma-separated list.
func (c Cancellation) String() string {
	if c == 0 {
		return "none"
	}

	var names []string
	for _, n := range cancellationNames {
		if c.Has(n.flag) {
			names = append(names, n.name)
		}
	}

	return strings.Join(names, ",")
}

// ParseCancellation parses a comma-separated list of flag names.
func ParseCancellation(s string) (Cancellation, error) {
	var c Cancellation

	for name := range strings.SplitSeq(s, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		found := false
		for _, n := range cancellationNames {
			if n.name == name {
				c |= n.flag
				found = true

				break
			}
		}

		if !found {
			return 0, fmt.Errorf("unknown cancellation flag %q", name)
		}
	}

	return c, nil
}

// Correct resolves contradictory flag combinations deterministically.
// It returns the corrected flags and one message per applied correction.
func (c Cancellation) Correct(interfaceMethod bool) (Cancellation, []string) {
	var warnings []string

	switch {
	case !c.Has(CancelOptional) && !c.Has(CancelRequired):
		c |= CancelOptional
		warnings = append(warnings, "neither optional nor required is set, optional is added")

	case c.Has(CancelOptional | CancelRequired):
		c &^= CancelRequired
		warnings = append(warnings, "optional and required cannot be combined, required is removed")
	}

	if c.Has(CancelForwardNone | CancelSealedForwardNone) {
		c &^= CancelSealedForwardNone
		warnings = append(warnings, "forward-none and sealed-forward-none cannot be combined, sealed-forward-none is removed")
	}

	if c.Has(CancelOptional) && c&(CancelForwardNone|CancelSealedForwardNone) != 0 {
		c &^= CancelForwardNone | CancelSealedForwardNone
		warnings = append(warnings, "optional cannot be combined with forward-none variants, they are removed")
	}

	if interfaceMethod && c.Has(CancelRequired) && c&(CancelForwardNone|CancelSealedForwardNone) != 0 {
		c &^= CancelForwardNone | CancelSealedForwardNone
		warnings = append(warnings, "interface methods cannot forward none, forward-none variants are removed")
	}

	return c, warnings
}
