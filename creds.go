package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stanford-rc/acp-go/internal/config"
	"github.com/stanford-rc/acp-go/internal/store"
)

func newCredsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "creds",
		Short: "Manage stored provider credentials",
	}

	cmd.AddCommand(newCredsAWSCmd())

	return cmd
}

func newCredsAWSCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aws",
		Short: "Manage stored AWS access keys",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <access-key> <secret>",
		Short: "Store an AWS access key and secret",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, st *store.Store) error {
				if err := st.PutAWSCredential(ctx, args[0], args[1]); err != nil {
					return err
				}

				statusf("Stored credential for %s.\n", args[0])

				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <access-key>",
		Short: "Print the secret stored for an AWS access key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, st *store.Store) error {
				secret, err := st.AWSCredential(ctx, args[0])
				if errors.Is(err, store.ErrNoCredential) {
					return fmt.Errorf("no credential stored for %s", args[0])
				}

				if err != nil {
					return err
				}

				fmt.Println(secret)

				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rm <access-key>",
		Short: "Remove a stored AWS access key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, st *store.Store) error {
				if err := st.DeleteAWSCredential(ctx, args[0]); err != nil {
					return err
				}

				statusf("Removed credential for %s.\n", args[0])

				return nil
			})
		},
	})

	return cmd
}

// withStore opens the store for the duration of fn. Like withSession, but
// for commands that never touch the Globus session.
func withStore(cmd *cobra.Command, fn func(ctx context.Context, st *store.Store) error) error {
	ctx := cmd.Context()

	cfg, err := config.Resolve(flagConfigPath)
	if err != nil {
		return err
	}

	logger := buildLogger(cfg)

	st, err := openStore(ctx, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	return fn(ctx, st)
}
