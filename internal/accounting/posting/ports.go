package posting

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/accounts"
	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/journals"
	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/rules"
	internalShared "github.com/himanshudhami/InvoiceX-sub001/internal/shared"
)

// Repository is the persistence port of the posting service.
type Repository interface {
	FindByKey(ctx context.Context, companyID int64, key journals.Key) (journals.JournalEntry, bool, error)
	Get(ctx context.Context, id int64) (journals.JournalEntry, error)
	// RecordUsage writes a usage-log row outside any posting transaction.
	RecordUsage(ctx context.Context, log rules.UsageLog) error
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the operations available inside one posting unit.
type TxRepository interface {
	// LockKey serialises postings sharing an idempotency key until the unit ends.
	LockKey(ctx context.Context, companyID int64, key journals.Key) error
	FindByKey(ctx context.Context, companyID int64, key journals.Key) (journals.JournalEntry, bool, error)
	// LockAccounts locks the company and global accounts carrying codes, in ascending id order.
	LockAccounts(ctx context.Context, companyID int64, codes []string) ([]accounts.Account, error)
	// LockAccountsByID locks the accounts with ids, in ascending id order.
	LockAccountsByID(ctx context.Context, ids []int64) ([]accounts.Account, error)
	NextEntryNumber(ctx context.Context, companyID int64, fiscalYear string) (string, error)
	InsertEntry(ctx context.Context, entry journals.JournalEntry) (journals.JournalEntry, error)
	InsertLines(ctx context.Context, entryID int64, lines []journals.JournalLine) error
	DeleteLines(ctx context.Context, entryID int64) error
	GetEntryForUpdate(ctx context.Context, id int64) (journals.JournalEntry, error)
	UpdateDraftHeader(ctx context.Context, entry journals.JournalEntry) error
	SetStatus(ctx context.Context, id int64, status journals.JournalStatus) error
	MarkPosted(ctx context.Context, entry journals.JournalEntry) error
	MarkReversed(ctx context.Context, originalID, reversalID int64) error
	AddAccountBalance(ctx context.Context, accountID int64, delta decimal.Decimal) error
	UpsertSubledgerBalance(ctx context.Context, delta SubledgerDelta) error
	ApplyPeriodDelta(ctx context.Context, delta PeriodDelta) error
	InsertUsageLog(ctx context.Context, log rules.UsageLog) error
}

// SubledgerDelta is the movement of one party balance under a control account.
type SubledgerDelta struct {
	AccountID int64
	CompanyID int64
	Subledger journals.Subledger
	Debit     decimal.Decimal
	Credit    decimal.Decimal
	Balance   decimal.Decimal
}

// PeriodDelta is the movement of one account in one monthly period.
type PeriodDelta struct {
	AccountID   int64
	CompanyID   int64
	PeriodStart time.Time
	FiscalYear  string
	// BaseOpening seeds the opening of the account's first period row.
	BaseOpening decimal.Decimal
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Delta       decimal.Decimal
	Count       int
}

// RuleMatcher selects the rule for an event.
type RuleMatcher interface {
	Select(ctx context.Context, q rules.Query) (rules.Rule, error)
}

// PeriodGuard rejects postings into closed periods.
type PeriodGuard interface {
	EnsureOpen(ctx context.Context, companyID int64, date time.Time) error
}

// AuditPort records audit trail entries.
type AuditPort interface {
	Record(ctx context.Context, log internalShared.AuditLog) error
}

// CacheInvalidator is told when posted state for a company changes.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, companyID int64) error
}

// MetricsPort observes posting outcomes.
type MetricsPort interface {
	ObservePosting(sourceType, outcome string, elapsed time.Duration)
	ObserveFailure(class string)
}
