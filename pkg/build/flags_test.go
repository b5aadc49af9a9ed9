// SPDX-License-Identifier: MIT
package build

import "testing"

func TestInitializeDefaults(t *testing.T) {
	Initialize()
	f := GetFlags()
	if f.Name == "" {
		t.Error("expected non-empty application name")
	}
	if f.Version == "" {
		t.Error("expected non-empty version")
	}
}

func TestInitializeInjected(t *testing.T) {
	buildVersion = "1.2.3"
	buildCommit = "abc1234"
	defer func() {
		buildVersion = ""
		buildCommit = ""
	}()

	Initialize()
	f := GetFlags()
	if f.Version != "1.2.3" {
		t.Errorf("expected injected version 1.2.3, got %q", f.Version)
	}
	if f.Commit != "abc1234" {
		t.Errorf("expected injected commit abc1234, got %q", f.Commit)
	}
}
