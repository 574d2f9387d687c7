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
	"flag"
	"strings"

	"fillmore-labs.com/asyncplan/internal/config"
	"fillmore-labs.com/asyncplan/internal/policy"
	"fillmore-labs.com/asyncplan/internal/run"
)

// registerFlags binds the [run.Options] values to command line flag values.
// A nil flag set value defaults to the program's command line.
func registerFlags(flags *flag.FlagSet, r *run.Options) {
	if flags == nil {
		flags = flag.CommandLine
	}

	flags.Var(NewBehaviorValue(&r.Behavior, config.IncludeGenerated), "generated", "analyze generated files")
	flags.Var(NewBehaviorValue(&r.Behavior, config.ScanAllBodies), "scan-all", "scan every function body")
	flags.Var(NewBehaviorValue(&r.Behavior, config.UseCancellation), "cancellation", "thread a context through counterparts")
	flags.Var(NewBehaviorValue(&r.Behavior, config.ScanMissing), "missing", "plan counterparts missing from interface implementations")
	flags.Var(NewBehaviorValue(&r.Behavior, config.PreserveReturnType), "preserve-return-type", "keep declared results where possible")
	flags.Var(NewBehaviorValue(&r.Behavior, config.CallForwarding), "forward", "forward to the synchronous declaration when nothing converts")

	flags.Var(suffixesValue{&r.Suffixes}, "suffixes", "comma-separated suffixes naming asynchronous counterparts")
	flags.Var(cancellationValue{&r.Cancellation}, "cancellation-policy", "cancellation generated for declarations without directive")
}

type suffixesValue struct{ suffixes *[]string }

// Set implements [flag.Value].
func (v suffixesValue) Set(s string) error {
	var suffixes []string

	for suffix := range strings.SplitSeq(s, ",") {
		if suffix = strings.TrimSpace(suffix); suffix != "" {
			suffixes = append(suffixes, suffix)
		}
	}

	*v.suffixes = suffixes

	return nil
}

// String implements [flag.Value].
func (v suffixesValue) String() string {
	if v.suffixes == nil {
		return ""
	}

	return strings.Join(*v.suffixes, ",")
}

type cancellationValue struct{ cancellation *policy.Cancellation }

// Set implements [flag.Value].
func (v cancellationValue) Set(s string) error {
	c, err := policy.ParseCancellation(s)
	if err != nil {
		return err
	}

	*v.cancellation = c

	return nil
}

// String implements [flag.Value].
func (v cancellationValue) String() string {
	if v.cancellation == nil {
		return ""
	}

	return v.cancellation.String()
}
