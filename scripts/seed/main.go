package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/posting"
	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/rules"
	"github.com/himanshudhami/InvoiceX-sub001/internal/app"
	"github.com/himanshudhami/InvoiceX-sub001/internal/integration"
	"github.com/himanshudhami/InvoiceX-sub001/internal/platform/db"
)

func main() {
	ctx := context.Background()
	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	company, err := strconv.ParseInt(getenv("SEED_COMPANY_ID", "1"), 10, 64)
	if err != nil || company <= 0 {
		log.Fatalf("SEED_COMPANY_ID must be a positive integer")
	}

	pool, err := db.New(ctx, cfg.PGDSN, 2)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	ledger := app.NewLedger(app.LedgerDeps{Pool: pool, Config: cfg, Logger: app.NewLogger(cfg)})

	fmt.Println("→ Seeding chart of accounts...")
	n, err := ledger.Services.Accounts.SeedDefaults(ctx, nil)
	if err != nil {
		log.Fatalf("seed accounts: %v", err)
	}
	fmt.Printf("  %d accounts created\n", n)

	fmt.Println("→ Importing default rule pack...")
	cat, err := rules.DefaultCatalog()
	if err != nil {
		log.Fatalf("load rules: %v", err)
	}
	n, err = ledger.Services.Rules.Import(ctx, cat)
	if err != nil {
		log.Fatalf("import rules: %v", err)
	}
	fmt.Printf("  %d rules imported (pack %s)\n", n, cat.PackVersion)

	fmt.Println("→ Posting sample events...")
	if err := postSamples(ctx, ledger.Hooks, company); err != nil {
		log.Fatalf("post samples: %v", err)
	}
	fmt.Println("✓ Seed complete")
}

func postSamples(ctx context.Context, hooks *integration.Hooks, company int64) error {
	day := time.Date(time.Now().Year(), time.Now().Month(), 1, 0, 0, 0, 0, time.UTC)
	d := decimal.RequireFromString

	steps := []struct {
		name string
		run  func() (posting.Result, error)
	}{
		{"invoice INV-0001", func() (posting.Result, error) {
			return hooks.HandleInvoiceFinalized(ctx, integration.InvoiceFinalized{
				CompanyID: company, InvoiceID: "seed-inv-1", InvoiceNumber: "INV-0001", CustomerID: "cust-acme",
				Date: day, Subtotal: d("10000"), CGST: d("900"), SGST: d("900"), Total: d("11800"),
			})
		}},
		{"bill BILL-0001", func() (posting.Result, error) {
			return hooks.HandleVendorBillApproved(ctx, integration.VendorBillApproved{
				CompanyID: company, BillID: "seed-bill-1", BillNumber: "BILL-0001", VendorID: "vend-paper",
				Date: day.AddDate(0, 0, 2), Subtotal: d("2000"), IGST: d("360"), Total: d("2360"), IsInterstate: true,
			})
		}},
		{"receipt RCPT-0001", func() (posting.Result, error) {
			return hooks.HandlePaymentReceived(ctx, integration.PaymentReceived{
				CompanyID: company, PaymentID: "seed-rcpt-1", PaymentNumber: "RCPT-0001", CustomerID: "cust-acme",
				Date: day.AddDate(0, 0, 5), Amount: d("11800"), BankAccountID: "bank-main",
			})
		}},
		{"vendor payment PAY-0001", func() (posting.Result, error) {
			return hooks.HandleVendorPaymentMade(ctx, integration.VendorPaymentMade{
				CompanyID: company, PaymentID: "seed-pay-1", PaymentNumber: "PAY-0001", VendorID: "vend-paper",
				Date: day.AddDate(0, 0, 7), Amount: d("2360"), BankAccountID: "bank-main",
			})
		}},
	}
	for _, step := range steps {
		res, err := step.run()
		if err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
		state := "replayed"
		if res.Created {
			state = "posted"
		}
		fmt.Printf("  %s %s as %s\n", step.name, state, res.Entry.Number)
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
