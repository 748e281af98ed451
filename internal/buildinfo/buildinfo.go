package buildinfo

import (
	"fmt"
	"runtime"
)

var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

// UserAgent is sent when a source does not configure its own.
func UserAgent() string {
	return fmt.Sprintf("mangascout/%s (%s; %s)", Version, runtime.GOOS, runtime.GOARCH)
}
