package main

import (
	"fmt"
	"os"

	"github.com/banksean/toastrun/failure"
	"github.com/banksean/toastrun/manifest"
)

// exitCode maps any error returned from a subcommand's Run to a process
// exit code: 130 for an interruption, 1 for anything else.
func exitCode(err error) int {
	return failure.ExitCode(err)
}

// loadManifest reads, parses, and validates the manifest at path.
func loadManifest(path string) (*manifest.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, failure.NewUser(fmt.Sprintf("Unable to read manifest %s.", path), err.Error())
	}

	m, err := manifest.Parse(data)
	if err != nil {
		return nil, err
	}
	if err := manifest.Validate(m); err != nil {
		return nil, err
	}
	return m, nil
}
