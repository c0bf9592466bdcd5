package accounts

import (
	"fmt"

	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/shared"
)

// Chart indexes a set of accounts by code for lookups during validation and rendering.
type Chart struct {
	byCode map[string]Account
	byID   map[int64]Account
}

// NewChart builds a chart index. Company accounts shadow global accounts with the same code.
func NewChart(list []Account) Chart {
	c := Chart{byCode: make(map[string]Account, len(list)), byID: make(map[int64]Account, len(list))}
	for _, a := range list {
		c.byID[a.ID] = a
		if existing, ok := c.byCode[a.Code]; ok && !existing.IsGlobal() && a.IsGlobal() {
			continue
		}
		c.byCode[a.Code] = a
	}
	return c
}

// Lookup returns the account with the supplied code.
func (c Chart) Lookup(code string) (Account, bool) {
	a, ok := c.byCode[code]
	return a, ok
}

// ByID returns the account with the supplied id.
func (c Chart) ByID(id int64) (Account, bool) {
	a, ok := c.byID[id]
	return a, ok
}

// Accounts returns every indexed account keyed by code.
func (c Chart) Accounts() map[string]Account { return c.byCode }

// ValidateHierarchy checks that every non-root account shares its parent's type and
// that control accounts name a control type.
func ValidateHierarchy(list []Account) error {
	byID := make(map[int64]Account, len(list))
	for _, a := range list {
		byID[a.ID] = a
	}
	for _, a := range list {
		if !a.Type.Valid() {
			return fmt.Errorf("account %s: unknown type %q", a.Code, a.Type)
		}
		if a.IsControl && a.ControlType.SubledgerKind() == "" {
			return fmt.Errorf("account %s: control account requires a control type", a.Code)
		}
		if a.ParentID == nil {
			continue
		}
		parent, ok := byID[*a.ParentID]
		if !ok {
			return fmt.Errorf("account %s: parent %d not found", a.Code, *a.ParentID)
		}
		if parent.Type != a.Type {
			return fmt.Errorf("account %s under %s: %w", a.Code, parent.Code, shared.ErrAccountHierarchy)
		}
	}
	return nil
}

// CheckSubledger verifies a line against the account's control configuration.
// kind is empty when the line carries no subledger reference.
func CheckSubledger(a Account, kind string) error {
	if !a.IsControl {
		return nil
	}
	if kind == "" {
		return fmt.Errorf("account %s: %w", a.Code, shared.ErrControlAccountWithoutSubledger)
	}
	if want := a.ControlType.SubledgerKind(); want != kind {
		return fmt.Errorf("account %s expects %s got %s: %w", a.Code, want, kind, shared.ErrSubledgerKindMismatch)
	}
	return nil
}
