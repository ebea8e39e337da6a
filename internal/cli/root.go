// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package cli implements vaultctl, the maintenance command line for a local
// document vault.
package cli

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/MKhiriev/go-doc-vault/internal/config"
	"github.com/MKhiriev/go-doc-vault/internal/logger"
	"github.com/MKhiriev/go-doc-vault/internal/vault"
	"github.com/MKhiriev/go-doc-vault/models"
)

// ValidFormats lists the accepted --format values.
var ValidFormats = []string{"text", "json"}

// RootOptions holds the flags shared by every command.
type RootOptions struct {
	Format string

	// fromFlags receives the configuration flags registered by
	// config.NewFlagSet.
	fromFlags *config.StructuredConfig
	build     models.BuildInfo
}

// NewRootCommand builds the vaultctl command tree.
func NewRootCommand(build models.BuildInfo) *cobra.Command {
	opts := &RootOptions{build: build}

	cmd := &cobra.Command{
		Use:   "vaultctl",
		Short: "Maintain an encrypted local document vault",
		Long: `vaultctl opens a document vault directly and runs maintenance tasks
against it: statistics, backups, restores, search and index rebuilds.

The vault key comes from --key-file, or the passphrase from the
VAULT_PASSPHRASE environment variable.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	fs, fromFlags := config.NewFlagSet("vaultctl")
	opts.fromFlags = fromFlags
	cmd.PersistentFlags().AddGoFlagSet(fs)
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewVersionCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))
	cmd.AddCommand(NewBackupCommand(opts))
	cmd.AddCommand(NewRestoreCommand(opts))
	cmd.AddCommand(NewSearchCommand(opts))
	cmd.AddCommand(NewReindexCommand(opts))
	cmd.AddCommand(NewSyncStateCommand(opts))

	return cmd
}

// withVault loads the configuration, opens the vault, runs fn and closes the
// vault again. The background sync job is never started from the CLI.
func withVault(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, v *vault.Vault) error) (err error) {
	cfg, err := config.Load(opts.fromFlags)
	if err != nil {
		return err
	}

	log, err := logger.New(cmd.ErrOrStderr(), "vaultctl").WithLevel(cfg.Log.Level)
	if err != nil {
		return err
	}

	vopts, err := vault.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}
	vopts.SyncInterval = 0

	ctx := log.WithContext(cmd.Context())
	v := vault.New(vopts, log)
	if err := v.Initialize(ctx); err != nil {
		return fmt.Errorf("open vault: %w", err)
	}
	defer func() {
		if cerr := v.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close vault: %w", cerr)
		}
	}()

	return fn(ctx, v)
}
