package w4dj

import (
	"fmt"
	"runtime"
)

var version = "dev"

func VersionNumberString() string {
	return version
}

func VersionString() string {
	return fmt.Sprintf("w4dj %s", VersionNumberString())
}

func SystemInfoString() string {
	return fmt.Sprintf("%s; Go %s; %s/%s", VersionString(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
