// Package consts houses some constants needed across wisp
package consts

import (
	"fmt"
	"runtime"
)

// Version contains the current semantic version of wisp.
const Version = "0.4.1"

// VersionDetails can be set externally as part of the build process
var VersionDetails = "" //nolint:gochecknoglobals

// FullVersion returns the maximally full version and build information for
// the currently running wisp executable.
func FullVersion() string {
	goVersionArch := fmt.Sprintf("%s, %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	if VersionDetails != "" {
		return fmt.Sprintf("%s (%s, %s)", Version, VersionDetails, goVersionArch)
	}
	return fmt.Sprintf("%s (%s)", Version, goVersionArch)
}

// Banner returns the ASCII-art wisp banner.
func Banner() string {
	banner := `          _
__      _(_)___ _ __
\ \ /\ / / / __| '_ \
 \ V  V /| \__ \ |_) |
  \_/\_/ |_|___/ .__/
               |_|`

	return banner
}
