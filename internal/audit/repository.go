package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Window bounds a timeline query. Limit zero returns every row.
type Window struct {
	Offset int
	Limit  int
}

// Repository reads audit_logs.
type Repository interface {
	Timeline(ctx context.Context, filters TimelineFilters, window Window) ([]TimelineRow, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns a Postgres-backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) Timeline(ctx context.Context, filters TimelineFilters, window Window) ([]TimelineRow, error) {
	query, args := timelineQuery(filters, window)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: timeline: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (TimelineRow, error) {
		var (
			out  TimelineRow
			meta []byte
		)
		if err := row.Scan(&out.ID, &out.At, &out.ActorID, &out.Action, &out.Entity, &out.EntityID, &meta); err != nil {
			return TimelineRow{}, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &out.Meta); err != nil {
				return TimelineRow{}, fmt.Errorf("audit: decode meta %d: %w", out.ID, err)
			}
		}
		return out, nil
	})
}

func timelineQuery(filters TimelineFilters, window Window) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if !filters.From.IsZero() {
		add("occurred_at >= $%d", filters.From)
	}
	if !filters.To.IsZero() {
		add("occurred_at < $%d", filters.To)
	}
	if filters.ActorID != nil {
		add("actor_id = $%d", *filters.ActorID)
	}
	if filters.Entity != "" {
		add("entity = $%d", filters.Entity)
	}
	if filters.EntityID != "" {
		add("entity_id = $%d", filters.EntityID)
	}
	if filters.Action != "" {
		add("action = $%d", filters.Action)
	}

	var b strings.Builder
	b.WriteString("SELECT id, occurred_at, actor_id, action, entity, entity_id, meta FROM audit_logs")
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY occurred_at DESC, id DESC")
	if window.Limit > 0 {
		args = append(args, window.Limit, window.Offset)
		fmt.Fprintf(&b, " LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}
	return b.String(), args
}
