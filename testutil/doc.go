/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package testutil contains assertion helpers shared by the tests of cachekit packages.
package testutil

type tHelper interface {
	Helper()
}
