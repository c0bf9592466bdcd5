package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// ErrDriftFound is returned by the integrity command when balances disagree with posted lines.
var ErrDriftFound = errors.New("ledgerctl: ledger drift detected")

func newMigrateCommand(open Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:       "migrate <up|down>",
		Short:     "Apply or roll back one step of the ledger schema",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd, open, func(d Deps) error {
				if d.Migrate == nil {
					return errNotConfigured
				}
				if err := d.Migrate(args[0] == "up"); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "migrate %s: done\n", args[0])
				return nil
			})
		},
	}
	return cmd
}

func newAccountsCommand(open Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage the chart of accounts",
	}

	var company int64
	seed := &cobra.Command{
		Use:   "seed",
		Short: "Install the default chart globally or for one company",
		RunE: func(cmd *cobra.Command, args []string) error {
			if company < 0 {
				return fmt.Errorf("accounts seed: --company must not be negative")
			}
			var scope *int64
			if company > 0 {
				scope = &company
			}
			return withDeps(cmd, open, func(d Deps) error {
				if d.Accounts == nil {
					return errNotConfigured
				}
				n, err := d.Accounts.SeedDefaults(cmd.Context(), scope)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "seeded %d accounts\n", n)
				return nil
			})
		},
	}
	seed.Flags().Int64Var(&company, "company", 0, "company id (0 installs the global chart)")

	cmd.AddCommand(seed)
	return cmd
}

func newRecalcCommand(open Opener) *cobra.Command {
	var company int64
	cmd := &cobra.Command{
		Use:   "recalc",
		Short: "Rebuild period balances from posted lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			if company < 0 {
				return fmt.Errorf("recalc: --company must not be negative")
			}
			return withDeps(cmd, open, func(d Deps) error {
				if d.Reports == nil {
					return errNotConfigured
				}
				rows, err := d.Reports.Recalculate(cmd.Context(), company)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "rebuilt %d period rows\n", rows)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&company, "company", 0, "company id (0 for every company)")
	return cmd
}

func newIntegrityCommand(open Opener) *cobra.Command {
	var (
		company    int64
		jsonOutput bool
	)
	cmd := &cobra.Command{
		Use:   "integrity",
		Short: "Compare stored balances with posted lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			if company < 0 {
				return fmt.Errorf("integrity: --company must not be negative")
			}
			return withDeps(cmd, open, func(d Deps) error {
				if d.Reports == nil {
					return errNotConfigured
				}
				report, err := d.Reports.CheckIntegrity(cmd.Context(), company)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if jsonOutput {
					if err := json.NewEncoder(out).Encode(report); err != nil {
						return fmt.Errorf("integrity: encode json: %w", err)
					}
				} else if report.OK() {
					fmt.Fprintln(out, "ok: no drift")
				} else {
					for _, d := range report.Drifts {
						fmt.Fprintf(out, "%s %s %s: actual %s expected %s\n", d.Scope, d.AccountCode, d.Key, d.Actual, d.Expected)
					}
				}
				if !report.OK() {
					return fmt.Errorf("%w: %d finding(s)", ErrDriftFound, len(report.Drifts))
				}
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&company, "company", 0, "company id (0 for every company)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print the report as JSON")
	return cmd
}
