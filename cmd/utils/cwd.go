package utils

import (
	"os"
	"path/filepath"
	"strings"
)

// OverrideCwd is set from the global --cwd flag.
var OverrideCwd string

// GetEffectiveCWD returns the absolute --cwd value when set, else os.Getwd().
func GetEffectiveCWD() string {
	if dir := strings.TrimSpace(OverrideCwd); dir != "" {
		if filepath.IsAbs(dir) {
			return dir
		}
		abs, err := filepath.Abs(dir)
		if err != nil {
			return "."
		}
		return abs
	}
	wd, _ := os.Getwd()
	if wd == "" {
		return "."
	}
	return wd
}
