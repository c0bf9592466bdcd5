package accounts

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType enumerates CoA categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeIncome    AccountType = "income"
	AccountTypeExpense   AccountType = "expense"
)

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeIncome, AccountTypeExpense:
		return true
	}
	return false
}

// NormalBalance is the side on which an account increases.
type NormalBalance string

const (
	NormalDebit  NormalBalance = "debit"
	NormalCredit NormalBalance = "credit"
)

// DefaultNormalBalance returns the conventional side for an account type.
func DefaultNormalBalance(t AccountType) NormalBalance {
	switch t {
	case AccountTypeAsset, AccountTypeExpense:
		return NormalDebit
	default:
		return NormalCredit
	}
}

// ControlType names the party kind a control account aggregates.
type ControlType string

const (
	ControlNone        ControlType = ""
	ControlReceivables ControlType = "receivables"
	ControlPayables    ControlType = "payables"
	ControlEmployee    ControlType = "employee"
	ControlBank        ControlType = "bank"
)

// SubledgerKind returns the subledger kind compatible with the control type.
func (c ControlType) SubledgerKind() string {
	switch c {
	case ControlReceivables:
		return "customer"
	case ControlPayables:
		return "vendor"
	case ControlEmployee:
		return "employee"
	case ControlBank:
		return "bank_account"
	}
	return ""
}

// Account models a chart of accounts node.
type Account struct {
	ID             int64
	CompanyID      *int64
	Code           string
	Name           string
	Type           AccountType
	NormalBalance  NormalBalance
	ParentID       *int64
	IsControl      bool
	ControlType    ControlType
	OpeningBalance decimal.Decimal
	CurrentBalance decimal.Decimal
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Delta converts a debit/credit pair into a movement in the account's normal sign.
func (a Account) Delta(debit, credit decimal.Decimal) decimal.Decimal {
	return SignedDelta(a.NormalBalance, debit, credit)
}

// SignedDelta is Delta for callers holding only the normal balance.
func SignedDelta(normal NormalBalance, debit, credit decimal.Decimal) decimal.Decimal {
	if normal == NormalCredit {
		return credit.Sub(debit)
	}
	return debit.Sub(credit)
}

// IsGlobal reports whether the account belongs to the shared chart.
func (a Account) IsGlobal() bool { return a.CompanyID == nil }

// CreateInput captures the fields required to open an account.
type CreateInput struct {
	CompanyID      *int64          `json:"company_id"`
	Code           string          `json:"code" validate:"required,max=32"`
	Name           string          `json:"name" validate:"required,max=128"`
	Type           AccountType     `json:"type" validate:"required,oneof=asset liability equity income expense"`
	NormalBalance  NormalBalance   `json:"normal_balance" validate:"omitempty,oneof=debit credit"`
	ParentCode     string          `json:"parent_code"`
	IsControl      bool            `json:"is_control"`
	ControlType    ControlType     `json:"control_type" validate:"omitempty,oneof=receivables payables employee bank"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}
