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

package gclplugin

import (
	"fmt"

	"fillmore-labs.com/asyncplan/analyzer"
	"fillmore-labs.com/asyncplan/internal/policy"
)

// Settings represents the configuration options for an instance of the [Plugin].
type Settings struct {
	// ScanAll scans every function body.
	ScanAll *bool `json:"scan-all,omitzero"`
	// Cancellation threads a context through counterparts.
	Cancellation *bool `json:"cancellation,omitzero"`
	// Missing plans counterparts missing from interface implementations.
	Missing *bool `json:"missing,omitzero"`
	// PreserveReturnType keeps declared results where possible.
	PreserveReturnType *bool `json:"preserve-return-type,omitzero"`
	// Forward forwards to the synchronous declaration when nothing converts.
	Forward *bool `json:"forward,omitzero"`
	// Suffixes name asynchronous counterparts.
	Suffixes []string `json:"suffixes,omitzero"`
	// CancellationPolicy is the cancellation generated for declarations without directive.
	CancellationPolicy *string `json:"cancellation-policy,omitzero"`
}

// Options converts [Settings] into a list of [analyzer.Option] for the asyncplan analyzer.
// It processes settings and applies them only when explicitly set (non-nil).
func (s Settings) Options() ([]analyzer.Option, error) {
	var opts []analyzer.Option

	opts = appendOption(opts, s.ScanAll, analyzer.WithScanAllBodies)
	opts = appendOption(opts, s.Cancellation, analyzer.WithCancellation)
	opts = appendOption(opts, s.Missing, analyzer.WithScanMissing)
	opts = appendOption(opts, s.PreserveReturnType, analyzer.WithPreserveReturnType)
	opts = appendOption(opts, s.Forward, analyzer.WithCallForwarding)

	if s.Suffixes != nil {
		opts = append(opts, analyzer.WithSuffixes(s.Suffixes...))
	}

	if s.CancellationPolicy != nil {
		c, err := policy.ParseCancellation(*s.CancellationPolicy)
		if err != nil {
			return nil, fmt.Errorf("asyncplan settings: %w", err)
		}

		opts = append(opts, analyzer.WithCancellationPolicy(c))
	}

	return opts, nil
}

// appendOption appends a non-nil setting to an [analyzer.Option] list.
func appendOption[T any](opts []analyzer.Option, value *T, constructor func(T) analyzer.Option) []analyzer.Option {
	if value == nil {
		return opts
	}

	return append(opts, constructor(*value))
}
