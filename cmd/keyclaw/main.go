// KeyClaw - Telegram key watcher and storefront redeemer
// License: MIT
//
// Copyright (c) 2026 KeyClaw contributors

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tinyland-inc/keyclaw/cmd/keyclaw/internal"
	"github.com/tinyland-inc/keyclaw/cmd/keyclaw/internal/auth"
	"github.com/tinyland-inc/keyclaw/cmd/keyclaw/internal/redeem"
	"github.com/tinyland-inc/keyclaw/cmd/keyclaw/internal/version"
	"github.com/tinyland-inc/keyclaw/cmd/keyclaw/internal/watch"
)

func NewKeyclawCommand() *cobra.Command {
	short := fmt.Sprintf("%s keyclaw - Game key watcher v%s\n\n", internal.Logo, internal.GetVersion())

	cmd := &cobra.Command{
		Use:     "keyclaw",
		Short:   short,
		Example: "keyclaw watch",
	}

	cmd.AddCommand(
		watch.NewWatchCommand(),
		auth.NewAuthCommand(),
		redeem.NewRedeemCommand(),
		version.NewVersionCommand(),
	)

	return cmd
}

func main() {
	cmd := NewKeyclawCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
