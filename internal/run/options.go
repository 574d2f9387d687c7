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

package run

import (
	"fillmore-labs.com/asyncplan/internal/config"
	"fillmore-labs.com/asyncplan/internal/gosrc"
	"fillmore-labs.com/asyncplan/internal/policy"
)

// Options represent the configuration of an asyncplan analyzer run.
type Options struct {
	// Behavior holds the behavioral flags of the decision engine.
	Behavior config.Behavior

	// Suffixes name asynchronous counterparts.
	Suffixes []string

	// Cancellation is the generation policy of declarations without directive.
	Cancellation policy.Cancellation

	// Concurrency limits concurrent graph building. Zero uses GOMAXPROCS.
	Concurrency int
}

// DefaultOptions initializes and returns a new Options instance with default values.
func DefaultOptions() *Options {
	return &Options{
		Behavior:     config.DefaultBehavior(),
		Suffixes:     gosrc.DefaultSuffixes,
		Cancellation: policy.CancelRequired,
	}
}
