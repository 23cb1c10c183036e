package main

import (
	"context"

	"github.com/banksean/toastrun/runtime"
)

// ShellCmd starts an interactive shell in a fresh, disposable container
// built from the named image.
type ShellCmd struct {
	Image string `arg:"" help:"image to start the shell from"`
}

func (c *ShellCmd) Run(cctx *Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	adapter := runtime.NewAdapter(cctx.Flag)
	return adapter.Shell(ctx, c.Image)
}
