package accounts

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/shared"
)

type memRepo struct {
	next     int64
	accounts []Account
}

func (m *memRepo) List(_ context.Context, companyID int64) ([]Account, error) {
	var out []Account
	for _, a := range m.accounts {
		if a.CompanyID == nil || *a.CompanyID == companyID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memRepo) Get(_ context.Context, id int64) (Account, error) {
	for _, a := range m.accounts {
		if a.ID == id {
			return a, nil
		}
	}
	return Account{}, ErrNotFound
}

func (m *memRepo) Insert(_ context.Context, a Account) (int64, error) {
	for _, existing := range m.accounts {
		if existing.Code == a.Code && sameCompany(existing.CompanyID, a.CompanyID) {
			return 0, ErrDuplicateCode
		}
	}
	m.next++
	a.ID = m.next
	a.IsActive = true
	m.accounts = append(m.accounts, a)
	return a.ID, nil
}

func (m *memRepo) SetActive(_ context.Context, id int64, active bool) error {
	for i := range m.accounts {
		if m.accounts[i].ID == id {
			m.accounts[i].IsActive = active
			return nil
		}
	}
	return ErrNotFound
}

func sameCompany(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func TestDefaultChartParses(t *testing.T) {
	chart, err := DefaultChart()
	require.NoError(t, err)
	require.NotEmpty(t, chart)

	byCode := map[string]CreateInput{}
	for _, in := range chart {
		byCode[in.Code] = in
	}
	ar := byCode["1300"]
	assert.True(t, ar.IsControl)
	assert.Equal(t, ControlReceivables, ar.ControlType)
	assert.Equal(t, ControlPayables, byCode["2100"].ControlType)
	assert.False(t, byCode["4100"].IsControl)
}

func TestBuildChartResolvesParents(t *testing.T) {
	inputs, err := DefaultChart()
	require.NoError(t, err)
	chart, err := BuildChart(inputs)
	require.NoError(t, err)

	ar, ok := chart.Lookup("1300")
	require.True(t, ok)
	assert.True(t, ar.IsActive)
	assert.Equal(t, NormalDebit, ar.NormalBalance)

	_, err = BuildChart([]CreateInput{
		{Code: "1", Name: "Assets", Type: AccountTypeAsset},
		{Code: "2", Name: "Odd", Type: AccountTypeIncome, ParentCode: "1"},
	})
	assert.ErrorIs(t, err, shared.ErrAccountHierarchy)
}

func TestParseChartRejectsForwardParent(t *testing.T) {
	_, err := ParseChart([]byte("accounts:\n  - {code: \"2\", name: b, type: asset, parent: \"1\"}\n  - {code: \"1\", name: a, type: asset}\n"))
	require.Error(t, err)
}

func TestSeedDefaultsIsRepeatable(t *testing.T) {
	repo := &memRepo{}
	svc := NewService(repo, nil)
	company := int64(7)

	created, err := svc.SeedDefaults(context.Background(), &company)
	require.NoError(t, err)
	assert.Equal(t, len(repo.accounts), created)

	again, err := svc.SeedDefaults(context.Background(), &company)
	require.NoError(t, err)
	assert.Zero(t, again)

	require.NoError(t, ValidateHierarchy(repo.accounts))
}

func TestCreateRejectsTypeMismatch(t *testing.T) {
	repo := &memRepo{}
	svc := NewService(repo, nil)
	ctx := context.Background()
	_, err := svc.Create(ctx, CreateInput{Code: "1000", Name: "Assets", Type: AccountTypeAsset})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateInput{Code: "4100", Name: "Sales", Type: AccountTypeIncome, ParentCode: "1000"})
	require.ErrorIs(t, err, shared.ErrAccountHierarchy)
}

func TestCreateRejectsControlOpeningBalance(t *testing.T) {
	svc := NewService(&memRepo{}, nil)
	_, err := svc.Create(context.Background(), CreateInput{
		Code: "1300", Name: "AR", Type: AccountTypeAsset, IsControl: true, ControlType: ControlReceivables,
		OpeningBalance: decimal.NewFromInt(10),
	})
	require.ErrorIs(t, err, ErrControlOpeningBalance)
}

func TestCreateDefaultsNormalBalance(t *testing.T) {
	svc := NewService(&memRepo{}, nil)
	acc, err := svc.Create(context.Background(), CreateInput{Code: "2100", Name: "AP", Type: AccountTypeLiability})
	require.NoError(t, err)
	assert.Equal(t, NormalCredit, acc.NormalBalance)
}

func TestDeltaFollowsNormalBalance(t *testing.T) {
	ten := decimal.NewFromInt(10)
	asset := Account{NormalBalance: NormalDebit}
	liability := Account{NormalBalance: NormalCredit}
	assert.True(t, asset.Delta(ten, decimal.Zero).Equal(ten))
	assert.True(t, liability.Delta(ten, decimal.Zero).Equal(ten.Neg()))
	assert.True(t, liability.Delta(decimal.Zero, ten).Equal(ten))
}

func TestCheckSubledger(t *testing.T) {
	ar := Account{Code: "1300", IsControl: true, ControlType: ControlReceivables}
	assert.NoError(t, CheckSubledger(ar, "customer"))
	assert.True(t, errors.Is(CheckSubledger(ar, ""), shared.ErrControlAccountWithoutSubledger))
	assert.True(t, errors.Is(CheckSubledger(ar, "vendor"), shared.ErrSubledgerKindMismatch))
	assert.NoError(t, CheckSubledger(Account{Code: "4100"}, ""))
}

func TestChartPrefersCompanyAccount(t *testing.T) {
	company := int64(3)
	chart := NewChart([]Account{
		{ID: 1, Code: "4100", Name: "Global Sales"},
		{ID: 2, Code: "4100", Name: "Company Sales", CompanyID: &company},
		{ID: 3, Code: "4200", Name: "Services"},
	})
	acc, ok := chart.Lookup("4100")
	require.True(t, ok)
	assert.Equal(t, int64(2), acc.ID)

	// order independent
	chart = NewChart([]Account{
		{ID: 2, Code: "4100", Name: "Company Sales", CompanyID: &company},
		{ID: 1, Code: "4100", Name: "Global Sales"},
	})
	acc, _ = chart.Lookup("4100")
	assert.Equal(t, int64(2), acc.ID)
}
