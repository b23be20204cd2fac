package buildinfo

import "testing"

func TestInfoPrefersLinkedValues(t *testing.T) {
	Version, Commit, BuiltAt = "1.2.3", "abc", "2024-01-01"
	defer func() { Version, Commit, BuiltAt = "dev", "", "" }()
	info := Info()
	if info["version"] != "1.2.3" || info["commit"] != "abc" || info["builtAt"] != "2024-01-01" {
		t.Fatalf("info: %v", info)
	}
	if info["go"] == "" {
		t.Fatalf("go version missing: %v", info)
	}
}
