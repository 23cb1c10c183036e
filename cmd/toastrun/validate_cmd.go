package main

import "fmt"

// ValidateCmd parses and validates a manifest without running anything.
type ValidateCmd struct{}

func (c *ValidateCmd) Run(cctx *Context) error {
	m, err := loadManifest(cctx.ManifestPath)
	if err != nil {
		return err
	}
	fmt.Printf("%s is valid (%d tasks).\n", cctx.ManifestPath, len(m.Tasks))
	return nil
}
