package integration

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceFinalized is raised by billing when a sales invoice is issued.
type InvoiceFinalized struct {
	CompanyID      int64           `json:"company_id" validate:"required,gt=0"`
	InvoiceID      string          `json:"invoice_id" validate:"required"`
	InvoiceNumber  string          `json:"invoice_number" validate:"required"`
	CustomerID     string          `json:"customer_id" validate:"required"`
	Date           time.Time       `json:"date" validate:"required"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	CGST           decimal.Decimal `json:"cgst"`
	SGST           decimal.Decimal `json:"sgst"`
	IGST           decimal.Decimal `json:"igst"`
	Cess           decimal.Decimal `json:"cess"`
	Discount       decimal.Decimal `json:"discount"`
	TDSReceivable  decimal.Decimal `json:"tds_receivable"`
	Total          decimal.Decimal `json:"total"`
	IsInterstate   bool            `json:"is_interstate"`
	IsExport       bool            `json:"is_export"`
	PlaceOfSupply  string          `json:"place_of_supply"`
	RevenueAccount string          `json:"revenue_account"`
	Currency       string          `json:"currency" validate:"omitempty,len=3"`
	ExchangeRate   decimal.Decimal `json:"exchange_rate"`
	ActorID        int64           `json:"actor_id"`
}

// VendorBillApproved is raised by payables when a purchase bill is approved.
type VendorBillApproved struct {
	CompanyID      int64           `json:"company_id" validate:"required,gt=0"`
	BillID         string          `json:"bill_id" validate:"required"`
	BillNumber     string          `json:"bill_number" validate:"required"`
	VendorID       string          `json:"vendor_id" validate:"required"`
	Date           time.Time       `json:"date" validate:"required"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	CGST           decimal.Decimal `json:"cgst"`
	SGST           decimal.Decimal `json:"sgst"`
	IGST           decimal.Decimal `json:"igst"`
	TDSAmount      decimal.Decimal `json:"tds_amount"`
	Total          decimal.Decimal `json:"total"`
	ExpenseAccount string          `json:"expense_account"`
	IsInterstate   bool            `json:"is_interstate"`
	ReverseCharge  bool            `json:"reverse_charge"`
	Currency       string          `json:"currency" validate:"omitempty,len=3"`
	ExchangeRate   decimal.Decimal `json:"exchange_rate"`
	ActorID        int64           `json:"actor_id"`
}

// PaymentReceived is raised when a customer payment is recorded.
type PaymentReceived struct {
	CompanyID      int64           `json:"company_id" validate:"required,gt=0"`
	PaymentID      string          `json:"payment_id" validate:"required"`
	PaymentNumber  string          `json:"payment_number" validate:"required"`
	CustomerID     string          `json:"customer_id" validate:"required"`
	Date           time.Time       `json:"date" validate:"required"`
	Amount         decimal.Decimal `json:"amount"`
	TDSAmount      decimal.Decimal `json:"tds_amount"`
	BankAccountID  string          `json:"bank_account_id" validate:"required"`
	BankLedgerCode string          `json:"bank_ledger_code"`
	ActorID        int64           `json:"actor_id"`
}

// VendorPaymentMade is raised when a vendor is paid.
type VendorPaymentMade struct {
	CompanyID      int64           `json:"company_id" validate:"required,gt=0"`
	PaymentID      string          `json:"payment_id" validate:"required"`
	PaymentNumber  string          `json:"payment_number" validate:"required"`
	VendorID       string          `json:"vendor_id" validate:"required"`
	Date           time.Time       `json:"date" validate:"required"`
	Amount         decimal.Decimal `json:"amount"`
	TDSAmount      decimal.Decimal `json:"tds_amount"`
	BankAccountID  string          `json:"bank_account_id" validate:"required"`
	BankLedgerCode string          `json:"bank_ledger_code"`
	ActorID        int64           `json:"actor_id"`
}

// PayrollApproved is raised per employee when a payroll run is approved.
type PayrollApproved struct {
	CompanyID       int64           `json:"company_id" validate:"required,gt=0"`
	RunID           string          `json:"run_id" validate:"required"`
	EmployeeID      string          `json:"employee_id" validate:"required"`
	Date            time.Time       `json:"date" validate:"required"`
	Gross           decimal.Decimal `json:"gross"`
	TDSAmount       decimal.Decimal `json:"tds_amount"`
	PFEmployee      decimal.Decimal `json:"pf_employee"`
	PFEmployer      decimal.Decimal `json:"pf_employer"`
	ESIEmployee     decimal.Decimal `json:"esi_employee"`
	ESIEmployer     decimal.Decimal `json:"esi_employer"`
	ProfessionalTax decimal.Decimal `json:"professional_tax"`
	SalaryAccount   string          `json:"salary_account"`
	ActorID         int64           `json:"actor_id"`
}

// ExpenseClaimApproved is raised when an employee expense claim is approved.
// Amount is the reimbursable total including tax.
type ExpenseClaimApproved struct {
	CompanyID      int64           `json:"company_id" validate:"required,gt=0"`
	ClaimID        string          `json:"claim_id" validate:"required"`
	ClaimNumber    string          `json:"claim_number" validate:"required"`
	EmployeeID     string          `json:"employee_id" validate:"required"`
	Date           time.Time       `json:"date" validate:"required"`
	Amount         decimal.Decimal `json:"amount"`
	CGST           decimal.Decimal `json:"cgst"`
	SGST           decimal.Decimal `json:"sgst"`
	IGST           decimal.Decimal `json:"igst"`
	ExpenseAccount string          `json:"expense_account"`
	ActorID        int64           `json:"actor_id"`
}

// ContractorPaymentMade is raised when a contractor is paid net of TDS.
type ContractorPaymentMade struct {
	CompanyID      int64           `json:"company_id" validate:"required,gt=0"`
	PaymentID      string          `json:"payment_id" validate:"required"`
	PaymentNumber  string          `json:"payment_number" validate:"required"`
	VendorID       string          `json:"vendor_id" validate:"required"`
	Date           time.Time       `json:"date" validate:"required"`
	Gross          decimal.Decimal `json:"gross"`
	TDSAmount      decimal.Decimal `json:"tds_amount"`
	BankAccountID  string          `json:"bank_account_id" validate:"required"`
	BankLedgerCode string          `json:"bank_ledger_code"`
	ExpenseAccount string          `json:"expense_account"`
	ActorID        int64           `json:"actor_id"`
}
