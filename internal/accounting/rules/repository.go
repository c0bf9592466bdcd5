package rules

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/journals"
	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/shared"
	"github.com/himanshudhami/InvoiceX-sub001/internal/platform/db"
)

// ErrRuleConflict indicates a priority or code collision rejected by the database.
var ErrRuleConflict = errors.New("rules: conflicting rule")

type Repository interface {
	CandidateLoader
	List(ctx context.Context, companyID *int64) ([]Rule, error)
	Get(ctx context.Context, id int64) (Rule, error)
	Insert(ctx context.Context, r Rule) (int64, error)
	Retire(ctx context.Context, id int64, effectiveTo time.Time) error
	Import(ctx context.Context, list []Rule) (int, error)
	InsertUsageLog(ctx context.Context, log UsageLog) error
	UsageLogs(ctx context.Context, ruleID int64, limit int) ([]UsageLog, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const ruleColumns = `id, company_id, code, name, source_type, trigger_event, priority, is_active, is_default,
conditions, template, effective_from, effective_to, COALESCE(fiscal_year, ''), pack_version, description, created_at, updated_at`

func scanRule(row pgx.Row) (Rule, error) {
	var (
		r          Rule
		conds, tpl []byte
	)
	if err := row.Scan(&r.ID, &r.CompanyID, &r.Code, &r.Name, &r.SourceType, &r.TriggerEvent, &r.Priority, &r.IsActive,
		&r.IsDefault, &conds, &tpl, &r.EffectiveFrom, &r.EffectiveTo, &r.FiscalYear, &r.PackVersion, &r.Description,
		&r.CreatedAt, &r.UpdatedAt); err != nil {
		return Rule{}, err
	}
	if err := json.Unmarshal(conds, &r.Conditions); err != nil {
		return Rule{}, fmt.Errorf("rules: decode conditions of %d: %w", r.ID, err)
	}
	if err := json.Unmarshal(tpl, &r.Template); err != nil {
		return Rule{}, fmt.Errorf("rules: decode template of %d: %w", r.ID, err)
	}
	return r, nil
}

func collect(rows pgx.Rows) ([]Rule, error) {
	defer rows.Close()
	var out []Rule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (r *repository) Candidates(ctx context.Context, companyID int64, sourceType, triggerEvent string) ([]Rule, error) {
	rows, err := r.db.Query(ctx, `SELECT `+ruleColumns+` FROM posting_rules
WHERE is_active AND source_type = $2 AND trigger_event = $3 AND (company_id = $1 OR company_id IS NULL)
ORDER BY company_id NULLS LAST, priority, id`, companyID, sourceType, triggerEvent)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (r *repository) List(ctx context.Context, companyID *int64) ([]Rule, error) {
	rows, err := r.db.Query(ctx, `SELECT `+ruleColumns+` FROM posting_rules
WHERE company_id IS NULL OR company_id = $1::bigint
ORDER BY source_type, trigger_event, company_id NULLS LAST, priority, id`, companyID)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (r *repository) Get(ctx context.Context, id int64) (Rule, error) {
	rule, err := scanRule(r.db.QueryRow(ctx, `SELECT `+ruleColumns+` FROM posting_rules WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Rule{}, shared.ErrRuleNotFound
	}
	return rule, err
}

func (r *repository) Insert(ctx context.Context, rule Rule) (int64, error) {
	return insertRule(ctx, r.db, rule)
}

func insertRule(ctx context.Context, q journals.Querier, rule Rule) (int64, error) {
	conds, err := json.Marshal(conditionsOrEmpty(rule.Conditions))
	if err != nil {
		return 0, err
	}
	tpl, err := json.Marshal(rule.Template)
	if err != nil {
		return 0, err
	}
	var id int64
	err = q.QueryRow(ctx, `INSERT INTO posting_rules (company_id, code, name, source_type, trigger_event, priority, is_active,
is_default, conditions, template, effective_from, effective_to, fiscal_year, pack_version, description)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NULLIF($13, ''), $14, $15) RETURNING id`,
		rule.CompanyID, rule.Code, rule.Name, rule.SourceType, rule.TriggerEvent, rule.Priority, rule.IsActive,
		rule.IsDefault, conds, tpl, rule.EffectiveFrom, rule.EffectiveTo, rule.FiscalYear, rule.PackVersion,
		rule.Description).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err, "") || db.IsExclusionViolation(err) {
			return 0, fmt.Errorf("%s: %w", rule.Code, ErrRuleConflict)
		}
		return 0, err
	}
	return id, nil
}

func conditionsOrEmpty(c []Condition) []Condition {
	if c == nil {
		return []Condition{}
	}
	return c
}

func (r *repository) Retire(ctx context.Context, id int64, effectiveTo time.Time) error {
	tag, err := r.db.Exec(ctx, `UPDATE posting_rules SET effective_to = $2, updated_at = NOW()
WHERE id = $1 AND (effective_to IS NULL OR effective_to > $2)`, id, effectiveTo)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrRuleNotFound
	}
	return nil
}

// Import inserts rules in one transaction, skipping codes that already exist.
func (r *repository) Import(ctx context.Context, list []Rule) (int, error) {
	inserted := 0
	err := db.WithTx(ctx, r.db, pgx.ReadCommitted, func(tx pgx.Tx) error {
		for _, rule := range list {
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM posting_rules
WHERE COALESCE(company_id, 0) = COALESCE($1::bigint, 0) AND COALESCE(fiscal_year, '') = $2 AND code = $3)`,
				rule.CompanyID, rule.FiscalYear, rule.Code).Scan(&exists); err != nil {
				return err
			}
			if exists {
				continue
			}
			if _, err := insertRule(ctx, tx, rule); err != nil {
				return err
			}
			inserted++
		}
		return nil
	})
	return inserted, err
}

func (r *repository) InsertUsageLog(ctx context.Context, log UsageLog) error {
	return InsertUsageLog(ctx, r.db, log)
}

// InsertUsageLog writes one usage-log row through q, which may be a transaction.
func InsertUsageLog(ctx context.Context, q journals.Querier, log UsageLog) error {
	_, err := q.Exec(ctx, `INSERT INTO posting_rule_usage_log (rule_id, journal_entry_id, company_id, source_type, source_id,
trigger_event, rule_snapshot, snapshot_digest, success, error_message)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		log.RuleID, log.JournalEntryID, log.CompanyID, log.SourceType, log.SourceID, log.TriggerEvent, log.Snapshot,
		log.Digest, log.Success, log.ErrorMessage)
	return err
}

func (r *repository) UsageLogs(ctx context.Context, ruleID int64, limit int) ([]UsageLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `SELECT id, rule_id, journal_entry_id, company_id, source_type, source_id, trigger_event,
rule_snapshot, snapshot_digest, success, error_message, created_at
FROM posting_rule_usage_log WHERE rule_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`, ruleID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []UsageLog
	for rows.Next() {
		var l UsageLog
		if err := rows.Scan(&l.ID, &l.RuleID, &l.JournalEntryID, &l.CompanyID, &l.SourceType, &l.SourceID, &l.TriggerEvent,
			&l.Snapshot, &l.Digest, &l.Success, &l.ErrorMessage, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
