// Copyright 2025 The Breadmap Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/breadmap/breadmap/cmd"
)

var Version = "development"

func main() {
	cmd.Execute(Version)
}
