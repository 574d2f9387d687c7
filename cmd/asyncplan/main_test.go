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

package main

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fillmore-labs.com/asyncplan/internal/config"
	"fillmore-labs.com/asyncplan/internal/store"
)

const demoSrc = `package demo

import "context"

func Read() string { return "" }

func ReadContext(ctx context.Context) string { return "" }

func Load() string {
	v := Read()

	return v
}
`

func writeModule(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()

	files := map[string]string{
		"go.mod":  "module example.com/demo\n\ngo 1.24\n",
		"demo.go": demoSrc,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
			t.Fatalf("Can't write %s: %v", name, err)
		}
	}

	return dir
}

func TestRun(t *testing.T) {
	t.Parallel()

	dir := writeModule(t)
	db := filepath.Join(t.TempDir(), "plan.db")

	var stdout, stderr strings.Builder
	if err := run(t.Context(), []string{"-dir", dir, "-sqlite", db}, &stdout, &stderr); err != nil {
		t.Fatalf("run() = %v, stderr: %s", err, stderr.String())
	}

	if out := stdout.String(); !strings.Contains(out, "async") || !strings.Contains(out, "example.com/demo.Load") {
		t.Errorf("Unexpected output:\n%s", out)
	}

	conn, err := store.Open(db)
	if err != nil {
		t.Fatalf("Open() = %v", err)
	}
	defer conn.Close()

	decisions, err := store.Decisions(t.Context(), conn)
	if err != nil {
		t.Fatalf("Decisions() = %v", err)
	}

	states := make(map[string]string, len(decisions))
	for _, d := range decisions {
		states[d.Key] = d.State
	}

	want := map[string]string{
		"example.com/demo.Load":        "async",
		"example.com/demo.Read":        "ignore",
		"example.com/demo.ReadContext": "ignore",
	}
	for key, state := range want {
		if states[key] != state {
			t.Errorf("%s is %q, want %q", key, states[key], state)
		}
	}
}

func TestParseFlags(t *testing.T) {
	t.Parallel()

	o, patterns, err := parseFlags([]string{"-forward", "-cancellation=false", "./pkg"}, &strings.Builder{})
	if err != nil {
		t.Fatalf("parseFlags() = %v", err)
	}

	if !o.behavior.Enabled(config.CallForwarding) || o.behavior.Enabled(config.UseCancellation) {
		t.Errorf("Got behavior %+v", o.behavior)
	}

	if !o.behavior.Enabled(config.ScanMissing) {
		t.Error("Default behavior lost")
	}

	if len(patterns) != 1 || patterns[0] != "./pkg" {
		t.Errorf("Got patterns %v", patterns)
	}

	if _, _, err := parseFlags([]string{"-h"}, &strings.Builder{}); !errors.Is(err, flag.ErrHelp) {
		t.Errorf("Got %v, want %v", err, flag.ErrHelp)
	}
}
