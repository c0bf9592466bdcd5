package rules

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/shared"
)

// Query describes the event a rule is selected for.
type Query struct {
	CompanyID    int64
	SourceType   string
	TriggerEvent string
	EventDate    time.Time
	FiscalYear   string
	Fields       Fields
}

// Matches reports whether rule applies to the query.
func Matches(r Rule, q Query) bool {
	if r.CompanyID != nil && *r.CompanyID != q.CompanyID {
		return false
	}
	if !r.IsActive || r.SourceType != q.SourceType || r.TriggerEvent != q.TriggerEvent {
		return false
	}
	if !r.EffectiveOn(q.EventDate) {
		return false
	}
	if r.FiscalYear != "" && r.FiscalYear != q.FiscalYear {
		return false
	}
	return MatchAll(r.Conditions, q.Fields)
}

// SortCandidates orders rules for selection: company rules before global ones,
// conditional rules before fallbacks, then priority and id ascending.
func SortCandidates(list []Rule) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.IsGlobal() != b.IsGlobal() {
			return !a.IsGlobal()
		}
		if a.IsDefault != b.IsDefault {
			return !a.IsDefault
		}
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		return a.ID < b.ID
	})
}

// SelectRule picks the first matching candidate.
func SelectRule(candidates []Rule, q Query) (Rule, error) {
	ordered := make([]Rule, len(candidates))
	copy(ordered, candidates)
	SortCandidates(ordered)
	for _, r := range ordered {
		if Matches(r, q) {
			return r, nil
		}
	}
	return Rule{}, &shared.NoMatchingRuleError{
		CompanyID:    q.CompanyID,
		SourceType:   q.SourceType,
		TriggerEvent: q.TriggerEvent,
		EventDate:    q.EventDate,
	}
}

// CandidateLoader loads active rules for a company and event, global rules included.
type CandidateLoader interface {
	Candidates(ctx context.Context, companyID int64, sourceType, triggerEvent string) ([]Rule, error)
}

// Matcher selects rules from the repository, collapsing identical concurrent loads.
type Matcher struct {
	loader CandidateLoader
	group  singleflight.Group
}

func NewMatcher(loader CandidateLoader) *Matcher {
	return &Matcher{loader: loader}
}

// Select loads candidates and applies SelectRule.
func (m *Matcher) Select(ctx context.Context, q Query) (Rule, error) {
	key := fmt.Sprintf("%d|%s|%s", q.CompanyID, q.SourceType, q.TriggerEvent)
	// The shared load outlives any single caller; each caller still
	// stops waiting on its own ctx below.
	loadCtx := context.WithoutCancel(ctx)
	ch := m.group.DoChan(key, func() (interface{}, error) {
		return m.loader.Candidates(loadCtx, q.CompanyID, q.SourceType, q.TriggerEvent)
	})
	var candidates []Rule
	select {
	case <-ctx.Done():
		return Rule{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Rule{}, fmt.Errorf("rules: load candidates: %w", res.Err)
		}
		candidates = res.Val.([]Rule)
	}
	return SelectRule(candidates, q)
}
