package cli

import (
	"context"
	"errors"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/reports"
	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/rules"
)

// RuleImporter stores a rule catalog.
type RuleImporter interface {
	Import(ctx context.Context, cat rules.Catalog) (int, error)
}

// ChartSeeder installs the default chart of accounts.
type ChartSeeder interface {
	SeedDefaults(ctx context.Context, companyID *int64) (int, error)
}

// Maintainer rebuilds and audits derived balances.
type Maintainer interface {
	Recalculate(ctx context.Context, companyID int64) (int, error)
	CheckIntegrity(ctx context.Context, companyID int64) (reports.IntegrityReport, error)
}

// Queue enqueues and inspects background jobs.
type Queue interface {
	Trigger(ctx context.Context, name string, companyID int64) (*asynq.TaskInfo, error)
	InspectQueue(ctx context.Context) (QueueStats, error)
}

// Deps are the online resources commands operate on. Any field may be nil when a
// command does not need it.
type Deps struct {
	Rules    RuleImporter
	Accounts ChartSeeder
	Reports  Maintainer
	Queue    Queue
	Migrate  func(up bool) error
}

// Opener connects to the ledger stores. The returned func releases them.
type Opener func(ctx context.Context) (Deps, func(), error)

var errNotConfigured = errors.New("ledgerctl: dependency not configured")

// NewRootCommand builds the ledgerctl command tree. Offline commands never call open.
func NewRootCommand(open Opener) *cobra.Command {
	root := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Operate the posting rules engine and ledger",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	root.AddCommand(
		newMigrateCommand(open),
		newRulesCommand(open),
		newAccountsCommand(open),
		newRecalcCommand(open),
		newIntegrityCommand(open),
		newJobsCommand(open),
	)
	return root
}

// withDeps opens the stores for the duration of fn.
func withDeps(cmd *cobra.Command, open Opener, fn func(Deps) error) error {
	if open == nil {
		return errNotConfigured
	}
	deps, closeFn, err := open(cmd.Context())
	if err != nil {
		return err
	}
	if closeFn != nil {
		defer closeFn()
	}
	return fn(deps)
}
