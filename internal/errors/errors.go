// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package errors gives cmd/cie one consistent shape for user-facing
// failures: a short title, a cause explanation, and a suggested next step,
// printed to stderr as text or folded into the JSON envelope under --json.
package errors

import (
	"encoding/json"
	"fmt"
	"os"
)

// Kind classifies a CLIError; it is reported as the "kind" field of the
// JSON error envelope (every CLIError exits with status 1).
type Kind string

const (
	KindInput      Kind = "input"
	KindConfig     Kind = "config"
	KindDatabase   Kind = "database"
	KindNetwork    Kind = "network"
	KindPermission Kind = "permission"
	KindInternal   Kind = "internal"
)

// CLIError is the one error type every cmd/cie command surfaces through
// FatalError: a title for the headline, a cause for what went wrong, and a
// hint for what the user should try next.
type CLIError struct {
	Kind  Kind
	Title string
	Cause string
	Hint  string
	Err   error
}

func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Title, e.Cause, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Title, e.Cause)
}

func (e *CLIError) Unwrap() error { return e.Err }

func newError(kind Kind, title, cause, hint string, err error) *CLIError {
	return &CLIError{Kind: kind, Title: title, Cause: cause, Hint: hint, Err: err}
}

func NewInputError(title, cause, hint string) *CLIError {
	return newError(KindInput, title, cause, hint, nil)
}

func NewConfigError(title, cause, hint string, err error) *CLIError {
	return newError(KindConfig, title, cause, hint, err)
}

func NewDatabaseError(title, cause, hint string, err error) *CLIError {
	return newError(KindDatabase, title, cause, hint, err)
}

func NewNetworkError(title, cause, hint string, err error) *CLIError {
	return newError(KindNetwork, title, cause, hint, err)
}

func NewPermissionError(title, cause, hint string, err error) *CLIError {
	return newError(KindPermission, title, cause, hint, err)
}

func NewInternalError(title, cause, hint string, err error) *CLIError {
	return newError(KindInternal, title, cause, hint, err)
}

// FatalError prints err and exits. A *CLIError prints its structured
// title/cause/hint (or the matching JSON envelope under jsonMode); any
// other error is wrapped as an internal error first.
func FatalError(err error, jsonMode bool) {
	cliErr, ok := err.(*CLIError)
	if !ok {
		cliErr = NewInternalError("Unexpected error", err.Error(), "This may be a bug worth reporting", err)
	}

	if jsonMode {
		enc := json.NewEncoder(os.Stderr)
		_ = enc.Encode(map[string]any{
			"error": map[string]any{
				"kind":  cliErr.Kind,
				"title": cliErr.Title,
				"cause": cliErr.Cause,
				"hint":  cliErr.Hint,
			},
		})
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", cliErr.Title)
		if cliErr.Cause != "" {
			fmt.Fprintf(os.Stderr, "  %s\n", cliErr.Cause)
		}
		if cliErr.Hint != "" {
			fmt.Fprintf(os.Stderr, "  Hint: %s\n", cliErr.Hint)
		}
	}
	os.Exit(1)
}
