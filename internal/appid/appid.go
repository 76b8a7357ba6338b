// Package appid holds the application identity shared by the CLI, config
// loader and HTTP handlers.
package appid

import (
	"github.com/fulmenhq/gofulmen/appidentity"
)

const (
	BinaryName  = "docsubmit"
	ConfigName  = "docsubmit"
	EnvPrefix   = "DOCSUBMIT_"
	Description = "Rate-limited document submission client for the goods registry API"

	// TelemetryNamespace prefixes exported metric names.
	TelemetryNamespace = "docsubmit"
)

// Get returns the application identity.
func Get() *appidentity.Identity {
	return &appidentity.Identity{
		BinaryName:  BinaryName,
		ConfigName:  ConfigName,
		EnvPrefix:   EnvPrefix,
		Description: Description,
	}
}
