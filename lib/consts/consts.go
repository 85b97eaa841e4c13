// Package consts houses some constants needed across xmapgen
package consts

import (
	"fmt"
	"runtime"
)

// Version contains the current semantic version of xmapgen.
const Version = "0.4.0"

// VersionDetails can be set externally as part of the build process
var VersionDetails = "" //nolint:gochecknoglobals

// FullVersion returns the maximally full version and build information for
// the currently running xmapgen executable.
func FullVersion() string {
	goVersionArch := fmt.Sprintf("%s, %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	if VersionDetails != "" {
		return fmt.Sprintf("%s (%s, %s)", Version, VersionDetails, goVersionArch)
	}
	return fmt.Sprintf("%s (%s)", Version, goVersionArch)
}
