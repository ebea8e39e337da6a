package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MKhiriev/go-doc-vault/internal/vault"
	"github.com/MKhiriev/go-doc-vault/models"
)

// NewVersionCommand prints the build information.
func NewVersionCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newOutput(cmd, opts)
			if out.json() {
				return out.writeJSON(opts.build)
			}
			out.printf("vaultctl %s\n", opts.build)
			return nil
		},
	}
}

// NewStatsCommand prints storage, index and sync statistics.
func NewStatsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show vault statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withVault(cmd, opts, func(ctx context.Context, v *vault.Vault) error {
				stats, err := v.GetStats(ctx)
				if err != nil {
					return err
				}
				return newOutput(cmd, opts).stats(stats)
			})
		},
	}
}

type backupFlags struct {
	file        string
	passwordEnv string
}

func (f *backupFlags) register(cmd *cobra.Command, fileFlag, fileUsage string) {
	cmd.Flags().StringVarP(&f.file, fileFlag, string(fileFlag[0]), "", fileUsage)
	cmd.Flags().StringVar(&f.passwordEnv, "password-env", "", "environment variable holding the backup password")
	_ = cmd.MarkFlagRequired(fileFlag)
}

// password reads the backup password from the named environment variable. An
// empty variable name means the backup is sealed with the vault key.
func (f *backupFlags) password() (string, error) {
	if f.passwordEnv == "" {
		return "", nil
	}
	pw, ok := os.LookupEnv(f.passwordEnv)
	if !ok || pw == "" {
		return "", fmt.Errorf("environment variable %s is empty", f.passwordEnv)
	}
	return pw, nil
}

// NewBackupCommand writes an encrypted backup as JSON.
func NewBackupCommand(opts *RootOptions) *cobra.Command {
	flags := &backupFlags{}
	cmd := &cobra.Command{
		Use:   "backup --out <file>",
		Short: "Write an encrypted backup of the whole vault",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := flags.password()
			if err != nil {
				return err
			}
			return withVault(cmd, opts, func(ctx context.Context, v *vault.Vault) error {
				backup, err := v.CreateBackup(ctx, password)
				if err != nil {
					return err
				}
				raw, err := json.Marshal(backup)
				if err != nil {
					return fmt.Errorf("encode backup: %w", err)
				}
				if err := os.WriteFile(flags.file, raw, 0o600); err != nil {
					return fmt.Errorf("write backup: %w", err)
				}
				newOutput(cmd, opts).printf("backup of %d documents written to %s\n", backup.DocumentCount, flags.file)
				return nil
			})
		},
	}
	flags.register(cmd, "out", "backup file to write")
	return cmd
}

// NewRestoreCommand replaces the vault contents with a backup.
func NewRestoreCommand(opts *RootOptions) *cobra.Command {
	flags := &backupFlags{}
	cmd := &cobra.Command{
		Use:   "restore --in <file>",
		Short: "Replace the vault contents with a backup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := flags.password()
			if err != nil {
				return err
			}
			raw, err := os.ReadFile(flags.file)
			if err != nil {
				return fmt.Errorf("read backup: %w", err)
			}
			var backup models.BackupData
			if err := json.Unmarshal(raw, &backup); err != nil {
				return fmt.Errorf("%w: %w", vault.ErrBackupVerification, err)
			}
			return withVault(cmd, opts, func(ctx context.Context, v *vault.Vault) error {
				if err := v.RestoreFromBackup(ctx, &backup, password); err != nil {
					return err
				}
				newOutput(cmd, opts).printf("restored %d documents from %s\n", backup.DocumentCount, flags.file)
				return nil
			})
		},
	}
	flags.register(cmd, "in", "backup file to read")
	return cmd
}

// NewSearchCommand runs a full-text query.
func NewSearchCommand(opts *RootOptions) *cobra.Command {
	var (
		types []string
		tags  []string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "search [query...]",
		Short: "Search documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withVault(cmd, opts, func(ctx context.Context, v *vault.Vault) error {
				results, err := v.SearchDocuments(ctx, models.SearchOptions{
					Query: strings.Join(args, " "),
					Types: types,
					Tags:  tags,
					Limit: limit,
				})
				if err != nil {
					return err
				}
				return newOutput(cmd, opts).results(results)
			})
		},
	}
	cmd.Flags().StringSliceVar(&types, "type", nil, "only documents of these types")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "only documents carrying all of these tags")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of results, 0 for all")
	return cmd
}

// NewReindexCommand rebuilds the search index from storage.
func NewReindexCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the search index from storage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withVault(cmd, opts, func(ctx context.Context, v *vault.Vault) error {
				n, err := v.RebuildIndex(ctx)
				if err != nil {
					return err
				}
				newOutput(cmd, opts).printf("indexed %d documents\n", n)
				return nil
			})
		},
	}
}

// NewSyncStateCommand prints the replica state and the pending changes.
func NewSyncStateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync-state",
		Short: "Show the replica id, clock and pending changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withVault(cmd, opts, func(ctx context.Context, v *vault.Vault) error {
				state, err := v.GetSyncState(ctx)
				if err != nil {
					return err
				}
				return newOutput(cmd, opts).syncState(state)
			})
		},
	}
}
