package integration

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/posting"
	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/rules"
	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/shared"
)

// Poster exposes the posting operation required by integrations.
type Poster interface {
	Post(ctx context.Context, req posting.Request) (posting.Result, error)
}

// Hooks wires domain events from operational modules into the general ledger.
type Hooks struct {
	poster   Poster
	logger   *slog.Logger
	validate *validator.Validate
}

// NewHooks constructs integration hooks.
func NewHooks(poster Poster, logger *slog.Logger) *Hooks {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hooks{poster: poster, logger: logger, validate: validator.New()}
}

func (h *Hooks) post(ctx context.Context, evt any, req posting.Request) (posting.Result, error) {
	if h == nil || h.poster == nil {
		return posting.Result{}, nil
	}
	if err := h.validate.Struct(evt); err != nil {
		return posting.Result{}, fmt.Errorf("integration: %s: %w: %v", req.SourceType, shared.ErrInvalidRequest, err)
	}
	res, err := h.poster.Post(ctx, req)
	if err != nil {
		return res, err
	}
	if !res.Created {
		h.logger.Debug("integration event already posted",
			slog.String("source_type", req.SourceType),
			slog.String("source_id", req.SourceID),
			slog.Int64("journal_entry_id", res.Entry.ID))
	}
	return res, nil
}

func request(companyID int64, sourceType, sourceID, number, trigger string, date time.Time, actorID int64, fields eventFields) posting.Request {
	return posting.Request{
		CompanyID:    companyID,
		SourceType:   sourceType,
		SourceID:     sourceID,
		SourceNumber: number,
		TriggerEvent: trigger,
		EventDate:    date,
		EventFields:  fields,
		ActorID:      actorID,
	}
}

// HandleInvoiceFinalized posts a finalized sales invoice.
func (h *Hooks) HandleInvoiceFinalized(ctx context.Context, evt InvoiceFinalized) (posting.Result, error) {
	fields := eventFields{}.
		text("invoice_number", evt.InvoiceNumber).
		text("customer_id", evt.CustomerID).
		amount("subtotal", evt.Subtotal).
		amount("cgst", evt.CGST).
		amount("sgst", evt.SGST).
		amount("igst", evt.IGST).
		amount("cess", evt.Cess).
		amount("discount", evt.Discount).
		amount("tds_receivable", evt.TDSReceivable).
		amount("total", evt.Total).
		flag("is_interstate", evt.IsInterstate).
		flag("is_export", evt.IsExport).
		text("place_of_supply", evt.PlaceOfSupply).
		text("revenue_account", evt.RevenueAccount).
		currency(evt.Currency, evt.ExchangeRate)
	return h.post(ctx, evt, request(evt.CompanyID, rules.SourceSalesInvoice, evt.InvoiceID, evt.InvoiceNumber,
		rules.TriggerFinalize, evt.Date, evt.ActorID, fields))
}

// HandleVendorBillApproved posts an approved vendor bill. The payable is the
// bill total net of TDS withheld.
func (h *Hooks) HandleVendorBillApproved(ctx context.Context, evt VendorBillApproved) (posting.Result, error) {
	fields := eventFields{}.
		text("bill_number", evt.BillNumber).
		text("vendor_id", evt.VendorID).
		amount("subtotal", evt.Subtotal).
		amount("cgst", evt.CGST).
		amount("sgst", evt.SGST).
		amount("igst", evt.IGST).
		amount("tds_amount", evt.TDSAmount).
		amount("total", evt.Total).
		amount("payable", evt.Total.Sub(evt.TDSAmount)).
		text("expense_account", evt.ExpenseAccount).
		flag("is_interstate", evt.IsInterstate).
		flag("reverse_charge", evt.ReverseCharge).
		currency(evt.Currency, evt.ExchangeRate)
	return h.post(ctx, evt, request(evt.CompanyID, rules.SourceVendorBill, evt.BillID, evt.BillNumber,
		rules.TriggerApprove, evt.Date, evt.ActorID, fields))
}

// HandlePaymentReceived posts a customer receipt; the bank receives the amount net of TDS.
func (h *Hooks) HandlePaymentReceived(ctx context.Context, evt PaymentReceived) (posting.Result, error) {
	fields := eventFields{}.
		text("payment_number", evt.PaymentNumber).
		text("customer_id", evt.CustomerID).
		amount("amount", evt.Amount).
		amount("tds_amount", evt.TDSAmount).
		amount("net_amount", evt.Amount.Sub(evt.TDSAmount)).
		text("bank_account_id", evt.BankAccountID).
		text("bank_ledger_code", evt.BankLedgerCode)
	return h.post(ctx, evt, request(evt.CompanyID, rules.SourcePaymentReceived, evt.PaymentID, evt.PaymentNumber,
		rules.TriggerReceive, evt.Date, evt.ActorID, fields))
}

// HandleVendorPaymentMade posts a vendor payment; the bank pays the amount net of TDS.
func (h *Hooks) HandleVendorPaymentMade(ctx context.Context, evt VendorPaymentMade) (posting.Result, error) {
	fields := eventFields{}.
		text("payment_number", evt.PaymentNumber).
		text("vendor_id", evt.VendorID).
		amount("amount", evt.Amount).
		amount("tds_amount", evt.TDSAmount).
		amount("net_amount", evt.Amount.Sub(evt.TDSAmount)).
		text("bank_account_id", evt.BankAccountID).
		text("bank_ledger_code", evt.BankLedgerCode)
	return h.post(ctx, evt, request(evt.CompanyID, rules.SourceVendorPayment, evt.PaymentID, evt.PaymentNumber,
		rules.TriggerPay, evt.Date, evt.ActorID, fields))
}

// HandlePayrollApproved posts one employee's share of an approved payroll run.
func (h *Hooks) HandlePayrollApproved(ctx context.Context, evt PayrollApproved) (posting.Result, error) {
	employerCost := sum(evt.PFEmployer, evt.ESIEmployer)
	statutory := sum(evt.PFEmployee, evt.PFEmployer, evt.ESIEmployee, evt.ESIEmployer, evt.ProfessionalTax)
	netPay := evt.Gross.Sub(sum(evt.TDSAmount, evt.PFEmployee, evt.ESIEmployee, evt.ProfessionalTax))
	fields := eventFields{}.
		text("payroll_run", evt.RunID).
		text("employee_id", evt.EmployeeID).
		amount("gross", evt.Gross).
		amount("net_pay", netPay).
		amount("tds_amount", evt.TDSAmount).
		amount("pf_employee", evt.PFEmployee).
		amount("pf_employer", evt.PFEmployer).
		amount("esi_employee", evt.ESIEmployee).
		amount("esi_employer", evt.ESIEmployer).
		amount("professional_tax", evt.ProfessionalTax).
		amount("statutory_total", statutory).
		amount("employer_cost", employerCost).
		text("salary_account", evt.SalaryAccount)
	sourceID := evt.RunID + ":" + evt.EmployeeID
	return h.post(ctx, evt, request(evt.CompanyID, rules.SourcePayroll, sourceID, evt.RunID,
		rules.TriggerApprove, evt.Date, evt.ActorID, fields))
}

// HandleExpenseClaimApproved posts an approved expense claim.
func (h *Hooks) HandleExpenseClaimApproved(ctx context.Context, evt ExpenseClaimApproved) (posting.Result, error) {
	fields := eventFields{}.
		text("claim_number", evt.ClaimNumber).
		text("employee_id", evt.EmployeeID).
		amount("amount", evt.Amount).
		amount("cgst", evt.CGST).
		amount("sgst", evt.SGST).
		amount("igst", evt.IGST).
		amount("net_amount", evt.Amount.Sub(sum(evt.CGST, evt.SGST, evt.IGST))).
		text("expense_account", evt.ExpenseAccount)
	return h.post(ctx, evt, request(evt.CompanyID, rules.SourceExpenseClaim, evt.ClaimID, evt.ClaimNumber,
		rules.TriggerApprove, evt.Date, evt.ActorID, fields))
}

// HandleContractorPaymentMade posts a contractor payment with TDS withheld.
func (h *Hooks) HandleContractorPaymentMade(ctx context.Context, evt ContractorPaymentMade) (posting.Result, error) {
	fields := eventFields{}.
		text("payment_number", evt.PaymentNumber).
		text("vendor_id", evt.VendorID).
		amount("gross", evt.Gross).
		amount("tds_amount", evt.TDSAmount).
		amount("net_amount", evt.Gross.Sub(evt.TDSAmount)).
		text("bank_account_id", evt.BankAccountID).
		text("bank_ledger_code", evt.BankLedgerCode).
		text("expense_account", evt.ExpenseAccount)
	return h.post(ctx, evt, request(evt.CompanyID, rules.SourceContractorPayment, evt.PaymentID, evt.PaymentNumber,
		rules.TriggerPay, evt.Date, evt.ActorID, fields))
}
