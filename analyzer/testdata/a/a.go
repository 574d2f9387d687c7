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

package a

import "context"

func Read() string { return "" }

func ReadContext(ctx context.Context) string { return "" }

func Load(name string) string { // want "Load gets an asynchronous counterpart requiring cancellation"
	if name == "" {
		panic("no name")
	}

	v := Read()

	return v
}

func Main() { // want "Main gets an asynchronous counterpart requiring cancellation"
	_ = Load("config")
}

func Pure() int { return 1 }

func Quiet() string { //nolint:asyncplan
	return Read()
}

type Store struct{}

func (Store) Get() string { // want "Store.Get gets an asynchronous counterpart requiring cancellation"
	v := Read()

	return v
}

//asyncplan:cancel=optional,required
func Fetch() string { // want "Fetch gets an asynchronous counterpart requiring cancellation" "invalid cancellation policy optional,required: optional and required cannot be combined, required is removed"
	v := Read()

	return v
}

//asyncplan:copy
func Verbatim() string {
	v := Read()

	return v
}
