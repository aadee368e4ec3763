package utils

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestGetDataDir(t *testing.T) {
	t.Setenv(DataDirEnv, "/tmp/cs-data")
	dir, err := GetDataDir()
	if err != nil || dir != "/tmp/cs-data" {
		t.Fatalf("GetDataDir() = %q, %v", dir, err)
	}
	tok, _ := TokenPath()
	if tok != filepath.Join("/tmp/cs-data", "session.token") {
		t.Fatalf("TokenPath() = %q", tok)
	}

	t.Setenv(DataDirEnv, "")
	t.Setenv("HOME", "/home/ada")
	dir, err = GetDataDir()
	if err != nil || !strings.HasSuffix(dir, ".connectsphere") {
		t.Fatalf("GetDataDir() default = %q, %v", dir, err)
	}
}

func TestGetEffectiveCWD(t *testing.T) {
	defer func() { OverrideCwd = "" }()
	OverrideCwd = "/srv/project"
	if got := GetEffectiveCWD(); got != "/srv/project" {
		t.Fatalf("GetEffectiveCWD() = %q", got)
	}
	OverrideCwd = "rel"
	if got := GetEffectiveCWD(); !filepath.IsAbs(got) {
		t.Fatalf("relative override not made absolute: %q", got)
	}
}
