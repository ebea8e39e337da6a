// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package validators checks documents and replicated changes before the vault
// accepts them.
//
// A Validator takes the value to check and, optionally, the names of the
// fields to check. Without field names a type-specific default set is used.
package validators

import "context"

// Validator validates v, optionally restricted to the named fields.
type Validator interface {
	Validate(ctx context.Context, v any, fields ...string) error
}
