package redeem

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tinyland-inc/keyclaw/cmd/keyclaw/internal"
	"github.com/tinyland-inc/keyclaw/pkg/activator"
	"github.com/tinyland-inc/keyclaw/pkg/pipeline"
	"github.com/tinyland-inc/keyclaw/pkg/platform"
)

func NewRedeemCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "redeem <key>",
		Short:   "Redeem a single key manually",
		Example: "keyclaw redeem AB12C-DE34F-GH56I",
		Args:    cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return redeemCmd(args[0])
		},
	}
}

func redeemCmd(rawKey string) error {
	cfg, err := internal.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	ctx := context.Background()

	session := platform.NewSession(cfg.Platform, cfg.CachePath())
	if err := session.Connect(ctx); err != nil {
		return fmt.Errorf("platform connect: %w", err)
	}
	if !session.Ready() {
		if err := session.LogOn(ctx, ""); err != nil {
			var le *platform.LogonError
			if errors.As(err, &le) && le.GuardRequired() {
				return fmt.Errorf("%w — run 'keyclaw auth' first", err)
			}
			return fmt.Errorf("platform login: %w", err)
		}
	}

	key, err := activator.New(session).Activate(ctx, pipeline.Normalize(rawKey))
	if err != nil {
		var ae *activator.ActivationError
		if errors.As(err, &ae) {
			return fmt.Errorf("key %s not redeemed: %s", ae.Key, ae.Reason)
		}
		return err
	}

	fmt.Printf("✓ Redeemed %s\n", key)
	return nil
}
