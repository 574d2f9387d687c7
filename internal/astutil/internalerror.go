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

package astutil

import "golang.org/x/tools/go/analysis"

// InternalError reports err at the package clause of the first file of p,
// since it cannot be attributed to a declaration. It reports whether a
// diagnostic was emitted.
func InternalError(p *analysis.Pass, err error) bool {
	if len(p.Files) == 0 {
		return false
	}

	f := p.Files[0]
	p.Report(analysis.Diagnostic{
		Pos:      f.Package,
		End:      f.Name.End(),
		Category: "internal",
		Message:  linterName + ": internal error: " + err.Error(),
	})

	return true
}
