/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package config loads configuration for cache instances and the surrounding application
// from files, readers and environment variables.
//
// Every configurable component implements the Config interface: SetProviderDefaults registers
// its defaults in a DataProvider, Set reads (and validates) the values back. A component that
// lives under a dedicated section of the document (e.g. "cache" or "log") also implements
// KeyPrefixProvider, and Loader hands it a DataProvider scoped to that section.
package config

// Config is a common interface for configuration objects that may be used by Loader.
type Config interface {
	SetProviderDefaults(dp DataProvider)
	Set(dp DataProvider) error
}

// KeyPrefixProvider is an interface for providing key prefix that will be used for configuration parameters.
type KeyPrefixProvider interface {
	KeyPrefix() string
}

// ScopedDataProvider returns a DataProvider for the given configuration object.
// If the object provides a non-empty key prefix, all keys are resolved relative to it.
func ScopedDataProvider(dp DataProvider, cfg interface{}) DataProvider {
	if kp, ok := cfg.(KeyPrefixProvider); ok && kp.KeyPrefix() != "" {
		return NewKeyPrefixedDataProvider(dp, kp.KeyPrefix())
	}
	return dp
}
