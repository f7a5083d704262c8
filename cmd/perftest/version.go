package main

import "runtime/debug"

// version is stamped at release time with -ldflags "-X main.version=...".
var version = ""

// getVersion prefers the stamped version, then the module version recorded by
// go install, and reports "dev" for local builds.
func getVersion() string {
	return resolveVersion(version, debug.ReadBuildInfo)
}

func resolveVersion(stamped string, buildInfo func() (*debug.BuildInfo, bool)) string {
	if stamped != "" {
		return stamped
	}
	if info, ok := buildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev"
}
