package pipeline

import (
	"fmt"

	"github.com/joho/godotenv"

	"firstboot/internal/build"
	"firstboot/internal/model"
)

// DefaultBootstrapParams returns the params written on internal builds.
func DefaultBootstrapParams() model.BootstrapParams {
	return model.BootstrapParams{
		"SshEnabled":      "1",
		"RecordFrontLock": "1",
		"GithubSshKeys":   build.SSHKeys,
	}
}

// LoadBootstrapParams returns the defaults overlaid with the KEY=VALUE pairs
// from envFile, if one is given. Later keys win.
func LoadBootstrapParams(envFile string) (model.BootstrapParams, error) {
	params := DefaultBootstrapParams()
	if envFile == "" {
		return params, nil
	}
	extra, err := godotenv.Read(envFile)
	if err != nil {
		return nil, fmt.Errorf("read bootstrap env %s: %w", envFile, err)
	}
	for k, v := range extra {
		params[k] = v
	}
	return params, nil
}
