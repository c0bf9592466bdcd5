package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/accounts"
	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/rules"
)

const defaultSource = "default"

func newRulesCommand(open Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Validate and import posting rule catalogs",
	}

	var chartPath string
	validate := &cobra.Command{
		Use:   "validate <file|default>",
		Short: "Check a catalog offline against the rule schema and a chart of accounts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := loadCatalog(args[0])
			if err != nil {
				return err
			}
			chart, err := loadChart(chartPath)
			if err != nil {
				return err
			}
			if err := CheckCatalog(cat, chart); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d rules valid (pack %s)\n", len(cat.Rules), cat.PackVersion)
			return nil
		},
	}
	validate.Flags().StringVar(&chartPath, "chart", "", "chart YAML to validate against (default: embedded chart)")

	importCmd := &cobra.Command{
		Use:   "import <file|default>",
		Short: "Validate and store a catalog, skipping codes already present",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := loadCatalog(args[0])
			if err != nil {
				return err
			}
			return withDeps(cmd, open, func(d Deps) error {
				if d.Rules == nil {
					return errNotConfigured
				}
				n, err := d.Rules.Import(cmd.Context(), cat)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d of %d rules (pack %s)\n", n, len(cat.Rules), cat.PackVersion)
				return nil
			})
		},
	}

	cmd.AddCommand(validate, importCmd)
	return cmd
}

// CheckCatalog runs every offline check on cat and joins the failures per rule.
func CheckCatalog(cat rules.Catalog, chart accounts.Chart) error {
	var errs []error
	for _, r := range cat.Rules {
		if err := rules.Validate(r, rules.DefaultSchema); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Code, err))
		}
		if err := rules.ValidateAgainstChart(r, chart); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Code, err))
		}
	}
	if err := rules.ValidateCatalog(cat.Rules); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func loadCatalog(src string) (rules.Catalog, error) {
	if src == defaultSource {
		return rules.DefaultCatalog()
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return rules.Catalog{}, fmt.Errorf("read catalog: %w", err)
	}
	return rules.ParseCatalog(data)
}

func loadChart(path string) (accounts.Chart, error) {
	var (
		inputs []accounts.CreateInput
		err    error
	)
	if path == "" {
		inputs, err = accounts.DefaultChart()
	} else {
		var data []byte
		data, err = os.ReadFile(path)
		if err != nil {
			return accounts.Chart{}, fmt.Errorf("read chart: %w", err)
		}
		inputs, err = accounts.ParseChart(data)
	}
	if err != nil {
		return accounts.Chart{}, err
	}
	return accounts.BuildChart(inputs)
}
