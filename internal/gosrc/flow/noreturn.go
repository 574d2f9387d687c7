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

package flow

import (
	"go/ast"
	"go/types"
)

// noReturn holds the full names of functions that never return normally.
var noReturn = map[string]struct{}{
	"log.Fatal":   {},
	"log.Fatalf":  {},
	"log.Fatalln": {},
	"log.Panic":   {},
	"log.Panicf":  {},
	"log.Panicln": {},

	"(*log.Logger).Fatal":   {},
	"(*log.Logger).Fatalf":  {},
	"(*log.Logger).Fatalln": {},
	"(*log.Logger).Panic":   {},
	"(*log.Logger).Panicf":  {},
	"(*log.Logger).Panicln": {},

	"os.Exit":        {},
	"syscall.Exit":   {},
	"runtime.Goexit": {},

	"(*testing.common).Fatal":   {},
	"(*testing.common).Fatalf":  {},
	"(*testing.common).FailNow": {},
	"(*testing.common).Skip":    {},
	"(*testing.common).Skipf":   {},
	"(*testing.common).SkipNow": {},

	"(testing.TB).Fatal":   {},
	"(testing.TB).Fatalf":  {},
	"(testing.TB).FailNow": {},
	"(testing.TB).Skip":    {},
	"(testing.TB).Skipf":   {},
	"(testing.TB).SkipNow": {},

	"(*go.uber.org/zap.Logger).Fatal":          {},
	"(*go.uber.org/zap.Logger).Panic":          {},
	"(*go.uber.org/zap.SugaredLogger).Fatal":   {},
	"(*go.uber.org/zap.SugaredLogger).Fatalf":  {},
	"(*go.uber.org/zap.SugaredLogger).Fatalln": {},
	"(*go.uber.org/zap.SugaredLogger).Fatalw":  {},
	"(*go.uber.org/zap.SugaredLogger).Panic":   {},
	"(*go.uber.org/zap.SugaredLogger).Panicf":  {},
	"(*go.uber.org/zap.SugaredLogger).Panicln": {},
	"(*go.uber.org/zap.SugaredLogger).Panicw":  {},

	"(*github.com/sirupsen/logrus.Logger).Exit":   {},
	"(*github.com/sirupsen/logrus.Logger).Panic":  {},
	"(*github.com/sirupsen/logrus.Logger).Panicf": {},
	"(*github.com/sirupsen/logrus.Entry).Panic":   {},
	"(*github.com/sirupsen/logrus.Entry).Panicf":  {},

	"k8s.io/klog/v2.Exit":   {},
	"k8s.io/klog/v2.Exitf":  {},
	"k8s.io/klog/v2.Fatal":  {},
	"k8s.io/klog/v2.Fatalf": {},
}

// NoReturn reports whether call never returns normally: it panics, exits
// the process or ends the goroutine.
func NoReturn(info *types.Info, call *ast.CallExpr) bool {
	var id *ast.Ident

	for fun := call.Fun; id == nil; {
		switch e := fun.(type) {
		case *ast.Ident:
			id = e

		case *ast.SelectorExpr:
			id = e.Sel

		case *ast.IndexExpr:
			fun = e.X

		case *ast.IndexListExpr:
			fun = e.X

		case *ast.ParenExpr:
			fun = e.X

		default:
			return false
		}
	}

	switch obj := info.Uses[id].(type) {
	case *types.Func:
		_, ok := noReturn[obj.Origin().FullName()]

		return ok

	case *types.Builtin:
		return obj.Name() == "panic"

	default:
		return false
	}
}
