package app

import "github.com/kart-io/version"

// GetVersion returns the version string.
func GetVersion() string {
	return version.Get().GitVersion
}
