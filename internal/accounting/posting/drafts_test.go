package posting

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/journals"
	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/shared"
)

func manualDraft(debit, credit string) journals.DraftInput {
	return journals.DraftInput{
		CompanyID:   1,
		Date:        june,
		Description: "Office supplies",
		ActorID:     7,
		Lines: []journals.LineInput{
			{AccountCode: "5900", Debit: dec(debit)},
			{AccountCode: "1100", Credit: dec(credit)},
		},
	}
}

func TestDraftLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	draft, err := f.svc.CreateDraft(ctx, manualDraft("500", "500"))
	require.NoError(t, err)
	assert.Equal(t, journals.JournalStatusDraft, draft.Status)
	assert.Empty(t, draft.Number)
	assert.True(t, f.balance("5900").IsZero(), "drafts do not move balances")

	updated, err := f.svc.UpdateDraft(ctx, draft.ID, manualDraft("600", "600"))
	require.NoError(t, err)
	assert.True(t, updated.TotalDebit.Equal(dec("600")))

	submitted, err := f.svc.SubmitDraft(ctx, draft.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, journals.JournalStatusPendingApproval, submitted.Status)

	_, err = f.svc.UpdateDraft(ctx, draft.ID, manualDraft("700", "700"))
	assert.ErrorIs(t, err, shared.ErrPostedEntryImmutable)

	posted, err := f.svc.PostDraft(ctx, draft.ID, 9)
	require.NoError(t, err)
	assert.Equal(t, journals.JournalStatusPosted, posted.Status)
	assert.Equal(t, "JE/2024-25/000001", posted.Number)
	require.NotNil(t, posted.PostedAt)
	assert.True(t, f.balance("5900").Equal(dec("600")))
	assert.True(t, f.balance("1100").Equal(dec("-600")))

	_, err = f.svc.UpdateDraft(ctx, draft.ID, manualDraft("1", "1"))
	assert.ErrorIs(t, err, shared.ErrPostedEntryImmutable)
	_, err = f.svc.PostDraft(ctx, draft.ID, 9)
	assert.ErrorIs(t, err, shared.ErrInvalidStatus)
	_, err = f.svc.SubmitDraft(ctx, draft.ID, 9)
	assert.ErrorIs(t, err, shared.ErrPostedEntryImmutable)
}

func TestDraftMayBeUnbalancedUntilSubmitted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	draft, err := f.svc.CreateDraft(ctx, manualDraft("500", "400"))
	require.NoError(t, err)

	_, err = f.svc.SubmitDraft(ctx, draft.ID, 7)
	assert.ErrorIs(t, err, shared.ErrUnbalanced)
	_, err = f.svc.PostDraft(ctx, draft.ID, 7)
	assert.ErrorIs(t, err, shared.ErrUnbalanced)
	assert.True(t, f.balance("5900").IsZero())
}

func TestDraftLineRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := manualDraft("500", "500")
	in.Lines[1].AccountCode = "1300"
	_, err := f.svc.CreateDraft(ctx, in)
	assert.ErrorIs(t, err, shared.ErrControlAccountWithoutSubledger)

	in.Lines[1].SubledgerKind = journals.SubledgerVendor
	in.Lines[1].SubledgerID = "v-1"
	_, err = f.svc.CreateDraft(ctx, in)
	assert.ErrorIs(t, err, shared.ErrSubledgerKindMismatch)

	in.Lines[1].SubledgerKind = journals.SubledgerCustomer
	draft, err := f.svc.CreateDraft(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, journals.Customer("v-1"), draft.Lines[1].Subledger)

	both := manualDraft("500", "500")
	both.Lines[0].Credit = dec("1")
	_, err = f.svc.CreateDraft(ctx, both)
	assert.ErrorIs(t, err, shared.ErrInvalidLine)

	single := manualDraft("500", "500")
	single.Lines = single.Lines[:1]
	_, err = f.svc.CreateDraft(ctx, single)
	assert.ErrorIs(t, err, shared.ErrInvalidRequest)
}

func TestPostedDraftCanBeReversed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	draft, err := f.svc.CreateDraft(ctx, manualDraft("250", "250"))
	require.NoError(t, err)
	posted, err := f.svc.PostDraft(ctx, draft.ID, 7)
	require.NoError(t, err)

	reversal, err := f.svc.Reverse(ctx, journals.ReverseInput{EntryID: posted.ID})
	require.NoError(t, err)
	assert.True(t, reversal.Created)
	assert.Equal(t, "Reversal of "+posted.Number, reversal.Entry.Description)
	assert.True(t, f.balance("5900").IsZero())
	assert.True(t, f.balance("1100").IsZero())
}
