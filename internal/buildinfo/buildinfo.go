// Package buildinfo reports the version stamped at link time, falling back
// to the VCS details recorded by the Go toolchain.
package buildinfo

import "runtime/debug"

// Set with -ldflags "-X paintshop/internal/buildinfo.Version=...".
var (
	Version = "dev"
	Commit  = ""
	BuiltAt = ""
)

func Info() map[string]string {
	info := map[string]string{
		"version": Version,
		"commit":  Commit,
		"builtAt": BuiltAt,
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	info["go"] = bi.GoVersion
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info["commit"] == "" {
				info["commit"] = s.Value
			}
		case "vcs.time":
			if info["builtAt"] == "" {
				info["builtAt"] = s.Value
			}
		case "vcs.modified":
			if s.Value == "true" {
				info["dirty"] = "true"
			}
		}
	}
	return info
}
