package main

import (
	"testing"

	"github.com/himanshudhami/InvoiceX-sub001/internal/app"
	_ "github.com/himanshudhami/InvoiceX-sub001/internal/testing/guard"
)

func TestMainReturnsInTestMode(t *testing.T) {
	app.RefreshTestMode()
	if !app.InTestMode() {
		t.Fatalf("expected test mode")
	}
	main()
}
