// Package build holds values fixed at build time. Override with
//
//	go build -ldflags "-X firstboot/internal/build.Branch=release3-staging"
//
// None of these are accepted from flags, env or config.
package build

import "strconv"

var (
	// RemoteURL is the read remote the payload is cloned from.
	RemoteURL = "https://github.com/commaai/openpilot.git"
	// PushURL replaces the push remote of internal builds.
	PushURL = "git@github.com:commaai/openpilot.git"
	// Branch is the only branch ever installed.
	Branch = "release3"
	// SSHKeys is written as the GithubSshKeys bootstrap parameter on internal builds.
	SSHKeys = ""
	// Internal selects the internal build, which bootstraps the device by
	// default.
	Internal = "false"
	// Version of the installer itself.
	Version = "dev"
)

// IsInternal parses Internal. Anything unparsable is false.
func IsInternal() bool {
	v, err := strconv.ParseBool(Internal)
	return err == nil && v
}
