// Package dirs locates the installer's config and state directories.
package dirs

import (
	"os"
	"path/filepath"
)

const appName = "firstboot"

// AppName returns the canonical application name for directory paths.
func AppName() string {
	return appName
}

// InstallerDir is where the installer keeps its own state under the device
// data partition (status file, lock, log, device config).
func InstallerDir(dataDir string) string {
	return filepath.Join(dataDir, "installer")
}

// SystemConfigDir is the image-wide config directory.
func SystemConfigDir() string {
	return filepath.Join("/etc", AppName())
}

// UserConfigDir returns $XDG_CONFIG_HOME/firstboot or its platform
// equivalent. It is only useful when running off-device.
func UserConfigDir() (string, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg, AppName()), nil
}

// ConfigDirs returns the config search path, most specific first:
// the data partition, then the image, then the user.
func ConfigDirs(dataDir string) []string {
	out := []string{InstallerDir(dataDir), SystemConfigDir()}
	if u, err := UserConfigDir(); err == nil {
		out = append(out, u)
	}
	return out
}
