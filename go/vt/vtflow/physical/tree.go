/*
Copyright 2026 The Vitess Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package physical

import (
	"github.com/xlab/treeprint"
)

// ToTree renders the operator tree with box-drawing branches, for EXPLAIN
// style output.
func ToTree(op Operator) string {
	return asTree(op, nil).String()
}

func asTree(op Operator, root treeprint.Tree) treeprint.Tree {
	txt := op.Kind().String()
	if details := Details(op); details != "" {
		txt += " (" + details + ")"
	}
	var branch treeprint.Tree
	if root == nil {
		branch = treeprint.NewWithRoot(txt)
	} else {
		branch = root.AddBranch(txt)
	}
	for _, in := range op.Inputs() {
		if in != nil {
			asTree(in, branch)
		}
	}
	return branch
}
