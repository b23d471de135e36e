package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/stanford-rc/acp-go/internal/config"
	"github.com/stanford-rc/acp-go/internal/globus"
)

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Authenticate to Globus, replacing any cached session",
		RunE:  runLogin,
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the cached Globus session",
		RunE:  runLogout,
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Display the authenticated Globus identity",
		RunE:  runWhoami,
	}
}

// runLogin forces a fresh login regardless of cached state.
func runLogin(cmd *cobra.Command, _ []string) error {
	caps := globus.ProbeCapabilities()

	return withSession(cmd, func(ctx context.Context, mgr *globus.Manager, _ *config.Config, _ *slog.Logger) error {
		if err := mgr.Logout(ctx); err != nil {
			return err
		}

		flow, err := globus.SelectFlow(caps)
		if err != nil {
			return err
		}

		if err := mgr.Login(ctx, flow, displayDeviceAuth, openBrowser); err != nil {
			return err
		}

		statusf("Login successful.\n")

		return nil
	})
}

func runLogout(cmd *cobra.Command, _ []string) error {
	return withSession(cmd, func(ctx context.Context, mgr *globus.Manager, _ *config.Config, _ *slog.Logger) error {
		if err := mgr.Logout(ctx); err != nil {
			return err
		}

		statusf("Logged out.\n")

		return nil
	})
}

func runWhoami(cmd *cobra.Command, _ []string) error {
	return withSession(cmd, func(ctx context.Context, mgr *globus.Manager, _ *config.Config, _ *slog.Logger) error {
		id, err := mgr.Identity(ctx)
		if errors.Is(err, globus.ErrNotLoggedIn) {
			return fmt.Errorf("not logged in, run 'acp login' first")
		}

		if err != nil {
			return err
		}

		if flagJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")

			return enc.Encode(id)
		}

		fmt.Printf("Name:     %s\n", id.Name)
		fmt.Printf("Username: %s\n", id.Username)
		fmt.Printf("Identity: %s\n", id.Subject)

		return nil
	})
}
