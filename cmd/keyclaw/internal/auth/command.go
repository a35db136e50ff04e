package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/tinyland-inc/keyclaw/cmd/keyclaw/internal"
	"github.com/tinyland-inc/keyclaw/pkg/platform"
)

func NewAuthCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Log on to the storefront account interactively",
		Long: "Performs the storefront logon, prompting for a guard code when the\n" +
			"account requires machine auth. The resulting session and sentry\n" +
			"artifacts are persisted so 'keyclaw watch' can start without prompts.",
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return authCmd()
		},
	}
}

func authCmd() error {
	cfg, err := internal.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	if cfg.Platform.AccountName == "" || cfg.Platform.Password == "" {
		return errors.New("platform account_name and password must be configured")
	}

	ctx := context.Background()

	session := platform.NewSession(cfg.Platform, cfg.CachePath())
	if err := session.Connect(ctx); err != nil {
		return fmt.Errorf("platform connect: %w", err)
	}

	err = session.LogOn(ctx, "")
	if err == nil {
		fmt.Println("✓ Logged on; session persisted")
		return nil
	}

	var le *platform.LogonError
	if !errors.As(err, &le) || !le.GuardRequired() {
		return err
	}

	fmt.Println("The account requires a guard code (check your email or authenticator).")
	rl, err := readline.New("guard code> ")
	if err != nil {
		return fmt.Errorf("readline: %w", err)
	}
	defer rl.Close()

	for attempt := 0; attempt < 3; attempt++ {
		line, err := rl.Readline()
		if err != nil {
			return fmt.Errorf("reading guard code: %w", err)
		}
		code := strings.TrimSpace(line)
		if code == "" {
			continue
		}

		err = session.LogOn(ctx, code)
		if err == nil {
			fmt.Println("✓ Logged on; session and sentry persisted")
			return nil
		}
		if errors.As(err, &le) && le.Result == platform.ResultInvalidGuardCode {
			fmt.Println("Invalid guard code, try again.")
			continue
		}
		return err
	}

	return errors.New("too many failed guard code attempts")
}
