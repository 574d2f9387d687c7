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

package analyzer

import (
	"log/slog"
	"slices"

	"fillmore-labs.com/asyncplan/internal/config"
	"fillmore-labs.com/asyncplan/internal/policy"
	"fillmore-labs.com/asyncplan/internal/run"
)

// Option configures specific behavior of a [New] asyncplan analyzer.
type Option interface {
	apply(r *run.Options)
	LogAttr() slog.Attr
}

// Options is a list of [Option] values that itself satisfies the [Option] interface.
type Options []Option

// LogValue implements [slog.LogValuer].
func (o Options) LogValue() slog.Value {
	as := make([]slog.Attr, 0, len(o))
	as = appendOptions(as, o)

	return slog.GroupValue(as...)
}

func appendOptions(as []slog.Attr, o Options) []slog.Attr {
	for _, opt := range o {
		switch opt := opt.(type) {
		case nil:
			as = append(as, slog.String("nil", "<nil>"))

		case Options:
			as = appendOptions(as, opt)

		default:
			as = append(as, opt.LogAttr())
		}
	}

	return as
}

func (o Options) apply(r *run.Options) {
	for _, opt := range o {
		if opt == nil {
			continue
		}

		opt.apply(r)
	}
}

// LogAttr is for logging with [slog.Logger.LogAttrs].
func (o Options) LogAttr() slog.Attr {
	return slog.Any("options", o)
}

// behaviorOption toggles one [config.Flag].
type behaviorOption struct {
	key   string
	flag  config.Flag
	value bool
}

func (o behaviorOption) apply(r *run.Options) {
	r.Behavior.Set(o.flag, o.value)
}

func (o behaviorOption) LogAttr() slog.Attr {
	return slog.Bool(o.key, o.value)
}

// WithGenerated is an [Option] to configure analysis of generated files.
func WithGenerated(generated bool) Option {
	return behaviorOption{"generated", config.IncludeGenerated, generated}
}

// WithScanAllBodies is an [Option] to scan every function body, not only pinned ones.
func WithScanAllBodies(scan bool) Option {
	return behaviorOption{"scan-all", config.ScanAllBodies, scan}
}

// WithCancellation is an [Option] to thread a context through generated counterparts.
func WithCancellation(cancellation bool) Option {
	return behaviorOption{"cancellation", config.UseCancellation, cancellation}
}

// WithScanMissing is an [Option] to seed counterparts a type lacks compared to its interfaces.
func WithScanMissing(missing bool) Option {
	return behaviorOption{"missing", config.ScanMissing, missing}
}

// WithPreserveReturnType is an [Option] to keep declared results where possible.
func WithPreserveReturnType(preserve bool) Option {
	return behaviorOption{"preserve-return-type", config.PreserveReturnType, preserve}
}

// WithCallForwarding is an [Option] to forward to the synchronous declaration when nothing converts.
func WithCallForwarding(forward bool) Option {
	return behaviorOption{"forward", config.CallForwarding, forward}
}

// WithSuffixes is an [Option] to configure the names of asynchronous counterparts.
func WithSuffixes(suffixes ...string) Option { return suffixesOption{suffixes: slices.Clone(suffixes)} }

type suffixesOption struct{ suffixes []string }

func (o suffixesOption) apply(r *run.Options) {
	r.Suffixes = o.suffixes
}

func (o suffixesOption) LogAttr() slog.Attr {
	return slog.Any("suffixes", o.suffixes)
}

// WithCancellationPolicy is an [Option] to configure how cancellation is generated
// for declarations without directive.
func WithCancellationPolicy(c policy.Cancellation) Option { return cancellationOption{c} }

type cancellationOption struct{ cancellation policy.Cancellation }

func (o cancellationOption) apply(r *run.Options) {
	r.Cancellation = o.cancellation
}

func (o cancellationOption) LogAttr() slog.Attr {
	return slog.String("cancellation-policy", o.cancellation.String())
}
