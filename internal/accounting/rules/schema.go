package rules

import "sort"

// Source types raised by collaborators.
const (
	SourceInvoice           = "invoice"
	SourceSalesInvoice      = "sales_invoice"
	SourceVendorBill        = "vendor_bill"
	SourcePaymentReceived   = "payment_received"
	SourceVendorPayment     = "vendor_payment"
	SourcePayroll           = "payroll"
	SourceExpenseClaim      = "expense_claim"
	SourceContractorPayment = "contractor_payment"
)

// Trigger events raised alongside the source types.
const (
	TriggerFinalize = "on_finalize"
	TriggerApprove  = "on_approve"
	TriggerReceive  = "on_receive"
	TriggerPay      = "on_pay"
)

// Fields every source type may carry.
var commonFields = []string{FieldCurrency, FieldExchangeRate, "document_number", "narration", "party_name"}

// Schema lists the event fields a rule may reference per source type.
type Schema map[string]map[string]struct{}

// NewSchema builds a schema from field lists. Common fields are added to every source type.
func NewSchema(sources map[string][]string) Schema {
	s := make(Schema, len(sources))
	for source, fields := range sources {
		set := make(map[string]struct{}, len(fields)+len(commonFields))
		for _, f := range commonFields {
			set[f] = struct{}{}
		}
		for _, f := range fields {
			set[f] = struct{}{}
		}
		s[source] = set
	}
	return s
}

// Allows reports whether field may be referenced by rules for source.
func (s Schema) Allows(source, field string) bool {
	set, ok := s[source]
	if !ok {
		return false
	}
	_, ok = set[field]
	return ok
}

// Knows reports whether source is a registered source type.
func (s Schema) Knows(source string) bool {
	_, ok := s[source]
	return ok
}

// SourceTypes returns registered source types in sorted order.
func (s Schema) SourceTypes() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// DefaultSchema covers the events raised by the integration adapters.
var DefaultSchema = NewSchema(map[string][]string{
	SourceInvoice: {
		"invoice_number", "customer_id", "subtotal", "total_amount", "total_cgst", "total_sgst", "total_igst",
		"is_interstate", "revenue_account",
	},
	SourceSalesInvoice: {
		"invoice_number", "customer_id", "subtotal", "total", "cgst", "sgst", "igst", "cess",
		"tds_receivable", "discount", "is_interstate", "is_export", "revenue_account", "place_of_supply",
	},
	SourceVendorBill: {
		"bill_number", "vendor_id", "subtotal", "total", "cgst", "sgst", "igst", "tds_amount",
		"payable", "expense_account", "is_interstate", "reverse_charge",
	},
	SourcePaymentReceived: {
		"payment_number", "customer_id", "amount", "tds_amount", "net_amount", "bank_account_id", "bank_ledger_code",
	},
	SourceVendorPayment: {
		"payment_number", "vendor_id", "amount", "tds_amount", "net_amount", "bank_account_id", "bank_ledger_code",
	},
	SourcePayroll: {
		"payroll_run", "employee_id", "gross", "net_pay", "tds_amount", "pf_employee", "pf_employer",
		"esi_employee", "esi_employer", "professional_tax", "statutory_total", "employer_cost", "salary_account",
	},
	SourceExpenseClaim: {
		"claim_number", "employee_id", "amount", "cgst", "sgst", "igst", "net_amount", "expense_account",
	},
	SourceContractorPayment: {
		"payment_number", "vendor_id", "gross", "tds_amount", "net_amount", "bank_account_id", "bank_ledger_code",
		"expense_account",
	},
})
