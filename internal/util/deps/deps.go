package deps

import (
	"fmt"
	"os"
	"os/exec"
)

// FindGit returns the path to the git binary.
// If customPath is non-empty, it tries that path or looks it up in PATH.
func FindGit(customPath string) (string, error) {
	if customPath != "" {
		if _, err := os.Stat(customPath); err == nil {
			return customPath, nil
		}
		if p, err := exec.LookPath(customPath); err == nil {
			return p, nil
		}
		return "", fmt.Errorf("could not find git at %q", customPath)
	}
	if p, err := exec.LookPath("git"); err == nil {
		return p, nil
	}
	return "", fmt.Errorf("could not find git in PATH. Please install git.")
}
