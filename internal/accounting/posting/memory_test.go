package posting

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/accounts"
	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/journals"
	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/reports"
	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/rules"
	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/shared"
)

type periodKey struct {
	account int64
	company int64
	start   string
}

type periodRow struct {
	Opening, Debit, Credit, Closing decimal.Decimal
	Count                           int
	FiscalYear                      string
}

type memState struct {
	accounts   map[int64]accounts.Account
	entries    map[int64]journals.JournalEntry
	seq        map[string]int64
	subledgers map[string]SubledgerDelta
	periods    map[periodKey]periodRow
	usage      []rules.UsageLog
	nextID     int64
}

func (s memState) clone() memState {
	out := memState{
		accounts:   make(map[int64]accounts.Account, len(s.accounts)),
		entries:    make(map[int64]journals.JournalEntry, len(s.entries)),
		seq:        make(map[string]int64, len(s.seq)),
		subledgers: make(map[string]SubledgerDelta, len(s.subledgers)),
		periods:    make(map[periodKey]periodRow, len(s.periods)),
		usage:      append([]rules.UsageLog(nil), s.usage...),
		nextID:     s.nextID,
	}
	for k, v := range s.accounts {
		out.accounts[k] = v
	}
	for k, v := range s.entries {
		out.entries[k] = v
	}
	for k, v := range s.seq {
		out.seq[k] = v
	}
	for k, v := range s.subledgers {
		out.subledgers[k] = v
	}
	for k, v := range s.periods {
		out.periods[k] = v
	}
	return out
}

// memStore serialises every unit of work behind one mutex and restores a
// snapshot when the unit fails.
type memStore struct {
	mu sync.Mutex
	st memState
	// staleReads makes the next n key lookups miss.
	staleReads int
}

func newMemStore(list []accounts.Account) *memStore {
	st := memState{
		accounts:   map[int64]accounts.Account{},
		entries:    map[int64]journals.JournalEntry{},
		seq:        map[string]int64{},
		subledgers: map[string]SubledgerDelta{},
		periods:    map[periodKey]periodRow{},
	}
	for _, a := range list {
		st.accounts[a.ID] = a
	}
	return &memStore{st: st}
}

func (m *memStore) FindByKey(_ context.Context, companyID int64, key journals.Key) (journals.JournalEntry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findByKey(companyID, key)
}

func (m *memStore) findByKey(companyID int64, key journals.Key) (journals.JournalEntry, bool, error) {
	if m.staleReads > 0 {
		m.staleReads--
		return journals.JournalEntry{}, false, nil
	}
	for _, e := range m.st.entries {
		if e.CompanyID == companyID && e.SourceType == key.SourceType && e.SourceID == key.SourceID && e.TriggerEvent == key.TriggerEvent {
			return e, true, nil
		}
	}
	return journals.JournalEntry{}, false, nil
}

func (m *memStore) Get(_ context.Context, id int64) (journals.JournalEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.st.entries[id]
	if !ok {
		return journals.JournalEntry{}, shared.ErrJournalNotFound
	}
	return e, nil
}

func (m *memStore) RecordUsage(_ context.Context, log rules.UsageLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.usage = append(m.st.usage, log)
	return nil
}

func (m *memStore) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := m.st.clone()
	if err := fn(ctx, &memTx{m: m}); err != nil {
		m.st = snapshot
		return err
	}
	return nil
}

func (m *memStore) account(code string) accounts.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.st.accounts {
		if a.Code == code {
			return a
		}
	}
	return accounts.Account{}
}

func (m *memStore) subledger(accountID, companyID int64, sub journals.Subledger) SubledgerDelta {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.subledgers[subledgerKey(accountID, companyID, sub)]
}

func (m *memStore) period(accountID, companyID int64, start time.Time) (periodRow, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.st.periods[periodKey{accountID, companyID, start.Format("2006-01-02")}]
	return row, ok
}

func (m *memStore) periodRows() map[periodKey]periodRow {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[periodKey]periodRow, len(m.st.periods))
	for k, v := range m.st.periods {
		out[k] = v
	}
	return out
}

// movements groups posted lines by account, company and month the way the
// rebuild query does.
func (m *memStore) movements() []reports.PeriodMovement {
	m.mu.Lock()
	defer m.mu.Unlock()
	index := map[periodKey]int{}
	var out []reports.PeriodMovement
	for _, e := range m.st.entries {
		if e.Status != journals.JournalStatusPosted && e.Status != journals.JournalStatusReversed {
			continue
		}
		start := time.Date(e.Date.Year(), e.Date.Month(), 1, 0, 0, 0, 0, time.UTC)
		for _, l := range e.Lines {
			k := periodKey{l.AccountID, e.CompanyID, start.Format("2006-01-02")}
			i, ok := index[k]
			if !ok {
				i = len(out)
				index[k] = i
				out = append(out, reports.PeriodMovement{
					AccountID:   l.AccountID,
					CompanyID:   e.CompanyID,
					PeriodStart: start,
					Debit:       decimal.Zero,
					Credit:      decimal.Zero,
				})
			}
			out[i].Debit = out[i].Debit.Add(l.Debit)
			out[i].Credit = out[i].Credit.Add(l.Credit)
			out[i].Count++
		}
	}
	return out
}

func (m *memStore) bases() map[int64]reports.AccountBasis {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int64]reports.AccountBasis, len(m.st.accounts))
	for id, a := range m.st.accounts {
		out[id] = reports.AccountBasis{CompanyID: a.CompanyID, NormalBalance: a.NormalBalance, OpeningBalance: a.OpeningBalance}
	}
	return out
}

func (m *memStore) entryCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.st.entries)
}

func (m *memStore) usageLogs() []rules.UsageLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]rules.UsageLog(nil), m.st.usage...)
}

// controlMismatches returns control accounts whose subledger total differs from their balance.
func (m *memStore) controlMismatches(companyID int64) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, a := range m.st.accounts {
		if !a.IsControl {
			continue
		}
		sum := decimal.Zero
		for _, d := range m.st.subledgers {
			if d.AccountID == a.ID && d.CompanyID == companyID {
				sum = sum.Add(d.Balance)
			}
		}
		if !sum.Equal(a.CurrentBalance) {
			out = append(out, fmt.Sprintf("%s: subledgers %s balance %s", a.Code, sum, a.CurrentBalance))
		}
	}
	return out
}

func subledgerKey(accountID, companyID int64, sub journals.Subledger) string {
	return fmt.Sprintf("%d|%d|%s", accountID, companyID, sub)
}

type memTx struct {
	m *memStore
}

func (t *memTx) LockKey(context.Context, int64, journals.Key) error { return nil }

func (t *memTx) FindByKey(_ context.Context, companyID int64, key journals.Key) (journals.JournalEntry, bool, error) {
	return t.m.findByKey(companyID, key)
}

func (t *memTx) sorted(keep func(accounts.Account) bool) []accounts.Account {
	var out []accounts.Account
	for _, a := range t.m.st.accounts {
		if keep(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (t *memTx) LockAccounts(_ context.Context, companyID int64, codes []string) ([]accounts.Account, error) {
	want := make(map[string]bool, len(codes))
	for _, c := range codes {
		want[c] = true
	}
	return t.sorted(func(a accounts.Account) bool {
		return want[a.Code] && (a.CompanyID == nil || *a.CompanyID == companyID)
	}), nil
}

func (t *memTx) LockAccountsByID(_ context.Context, ids []int64) ([]accounts.Account, error) {
	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	return t.sorted(func(a accounts.Account) bool { return want[a.ID] }), nil
}

func (t *memTx) NextEntryNumber(_ context.Context, companyID int64, fiscalYear string) (string, error) {
	key := fmt.Sprintf("%d|%s", companyID, fiscalYear)
	t.m.st.seq[key]++
	return journals.FormatNumber(fiscalYear, t.m.st.seq[key]), nil
}

func (t *memTx) InsertEntry(_ context.Context, e journals.JournalEntry) (journals.JournalEntry, error) {
	if e.SourceType != "" {
		for _, existing := range t.m.st.entries {
			if existing.CompanyID == e.CompanyID && existing.SourceType == e.SourceType &&
				existing.SourceID == e.SourceID && existing.TriggerEvent == e.TriggerEvent {
				return journals.JournalEntry{}, &shared.ConcurrentPostingConflict{SourceType: e.SourceType, SourceID: e.SourceID, TriggerEvent: e.TriggerEvent}
			}
		}
	}
	t.m.st.nextID++
	e.ID = t.m.st.nextID
	e.CreatedAt = time.Now()
	e.UpdatedAt = e.CreatedAt
	e.Lines = nil
	t.m.st.entries[e.ID] = e
	return e, nil
}

func (t *memTx) InsertLines(_ context.Context, entryID int64, lines []journals.JournalLine) error {
	e, ok := t.m.st.entries[entryID]
	if !ok {
		return shared.ErrJournalNotFound
	}
	stored := make([]journals.JournalLine, 0, len(lines))
	for i, l := range lines {
		l.ID = entryID*100 + int64(i+1)
		l.EntryID = entryID
		stored = append(stored, l)
	}
	e.Lines = stored
	t.m.st.entries[entryID] = e
	return nil
}

func (t *memTx) DeleteLines(_ context.Context, entryID int64) error {
	e := t.m.st.entries[entryID]
	e.Lines = nil
	t.m.st.entries[entryID] = e
	return nil
}

func (t *memTx) GetEntryForUpdate(_ context.Context, id int64) (journals.JournalEntry, error) {
	e, ok := t.m.st.entries[id]
	if !ok {
		return journals.JournalEntry{}, shared.ErrJournalNotFound
	}
	e.Lines = append([]journals.JournalLine(nil), e.Lines...)
	return e, nil
}

func (t *memTx) UpdateDraftHeader(_ context.Context, in journals.JournalEntry) error {
	e := t.m.st.entries[in.ID]
	e.Date, e.FiscalYear, e.Description = in.Date, in.FiscalYear, in.Description
	e.TotalDebit, e.TotalCredit = in.TotalDebit, in.TotalCredit
	t.m.st.entries[in.ID] = e
	return nil
}

func (t *memTx) SetStatus(_ context.Context, id int64, status journals.JournalStatus) error {
	e := t.m.st.entries[id]
	e.Status = status
	t.m.st.entries[id] = e
	return nil
}

func (t *memTx) MarkPosted(_ context.Context, in journals.JournalEntry) error {
	e := t.m.st.entries[in.ID]
	e.Status = journals.JournalStatusPosted
	e.Number, e.TotalDebit, e.TotalCredit, e.PostedAt = in.Number, in.TotalDebit, in.TotalCredit, in.PostedAt
	t.m.st.entries[in.ID] = e
	return nil
}

func (t *memTx) MarkReversed(_ context.Context, originalID, reversalID int64) error {
	e := t.m.st.entries[originalID]
	if e.Status != journals.JournalStatusPosted {
		return shared.ErrInvalidStatus
	}
	e.Status = journals.JournalStatusReversed
	e.IsReversed = true
	e.ReversedByID = &reversalID
	t.m.st.entries[originalID] = e
	return nil
}

func (t *memTx) AddAccountBalance(_ context.Context, accountID int64, delta decimal.Decimal) error {
	a := t.m.st.accounts[accountID]
	a.CurrentBalance = a.CurrentBalance.Add(delta)
	t.m.st.accounts[accountID] = a
	return nil
}

func (t *memTx) UpsertSubledgerBalance(_ context.Context, d SubledgerDelta) error {
	key := subledgerKey(d.AccountID, d.CompanyID, d.Subledger)
	cur, ok := t.m.st.subledgers[key]
	if !ok {
		t.m.st.subledgers[key] = d
		return nil
	}
	cur.Debit = cur.Debit.Add(d.Debit)
	cur.Credit = cur.Credit.Add(d.Credit)
	cur.Balance = cur.Balance.Add(d.Balance)
	t.m.st.subledgers[key] = cur
	return nil
}

func (t *memTx) ApplyPeriodDelta(_ context.Context, d PeriodDelta) error {
	key := periodKey{d.AccountID, d.CompanyID, d.PeriodStart.Format("2006-01-02")}
	row, ok := t.m.st.periods[key]
	if !ok {
		opening := d.BaseOpening
		latest := ""
		for k, r := range t.m.st.periods {
			if k.account == d.AccountID && k.company == d.CompanyID && k.start < key.start && k.start > latest {
				latest, opening = k.start, r.Closing
			}
		}
		row = periodRow{Opening: opening, Debit: decimal.Zero, Credit: decimal.Zero, Closing: opening, FiscalYear: d.FiscalYear}
	}
	row.Debit = row.Debit.Add(d.Debit)
	row.Credit = row.Credit.Add(d.Credit)
	row.Closing = row.Closing.Add(d.Delta)
	row.Count += d.Count
	t.m.st.periods[key] = row
	for k, r := range t.m.st.periods {
		if k.account == d.AccountID && k.company == d.CompanyID && k.start > key.start {
			r.Opening = r.Opening.Add(d.Delta)
			r.Closing = r.Closing.Add(d.Delta)
			t.m.st.periods[k] = r
		}
	}
	return nil
}

func (t *memTx) InsertUsageLog(_ context.Context, log rules.UsageLog) error {
	t.m.st.usage = append(t.m.st.usage, log)
	return nil
}
