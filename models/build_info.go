// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import "fmt"

// BuildInfo carries link-time metadata shown by the maintenance CLI.
type BuildInfo struct {
	Version string
	Date    string
	Commit  string
}

// String formats the build info for `--version` output. Missing fields are
// reported as "N/A".
func (b BuildInfo) String() string {
	return fmt.Sprintf("%s (built %s, commit %s)", orNA(b.Version), orNA(b.Date), orNA(b.Commit))
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
