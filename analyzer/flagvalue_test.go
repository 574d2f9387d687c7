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

package analyzer_test

import (
	"flag"
	"strings"
	"testing"

	. "fillmore-labs.com/asyncplan/analyzer"
	"fillmore-labs.com/asyncplan/internal/config"
)

func TestFlagValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		initial config.Flag
		args    []string
		want    bool
	}{
		{
			name:    "Enable",
			initial: config.ScanMissing,
			args:    []string{"-forward"},
			want:    true,
		},
		{
			name:    "Disable",
			initial: config.CallForwarding,
			args:    []string{"-forward=false"},
			want:    false,
		},
		{
			name:    "Unset",
			initial: config.CallForwarding,
			want:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			flags := config.NewBitMask(tt.initial)

			fs := flag.NewFlagSet("test", flag.ContinueOnError)

			const value = config.CallForwarding
			fv := NewBehaviorValue(&flags, value)
			fs.Var(fv, "forward", "enable call forwarding")

			if err := fs.Parse(tt.args); err != nil {
				t.Fatalf("Parse failed: %v", err)
			}

			if fv.Get() != tt.want {
				t.Errorf("Flag get = %v, want %v", fv.Get(), tt.want)
			}

			if got := flags.Enabled(value); got != tt.want {
				t.Errorf("Enabled = %v, want %v", got, tt.want)
			}

			if !flags.Enabled(tt.initial) && tt.initial != value {
				t.Errorf("Flag %d was reset", tt.initial)
			}
		})
	}
}

func TestFlagValueInvalid(t *testing.T) {
	t.Parallel()

	var flags config.Behavior

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(&strings.Builder{})
	fs.Var(NewBehaviorValue(&flags, config.ScanAllBodies), "scan-all", "scan every body")

	if err := fs.Parse([]string{"-scan-all=maybe"}); err == nil {
		t.Error("Expected parse error")
	}
}

func TestAnalyzerFlags(t *testing.T) {
	t.Parallel()

	a := New()

	for _, name := range []string{"generated", "scan-all", "cancellation", "missing", "preserve-return-type", "forward", "suffixes", "cancellation-policy"} {
		if a.Flags.Lookup(name) == nil {
			t.Errorf("Missing flag %q", name)
		}
	}

	if err := a.Flags.Set("suffixes", "Async, Ctx"); err != nil {
		t.Fatalf("Set suffixes failed: %v", err)
	}

	if got, want := a.Flags.Lookup("suffixes").Value.String(), "Async,Ctx"; got != want {
		t.Errorf("Suffixes = %q, want %q", got, want)
	}

	if err := a.Flags.Set("cancellation-policy", "bogus"); err == nil {
		t.Error("Expected error for unknown cancellation flag")
	}
}
