package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/ledger/internal/model"
)

func rules(errs []ValidationError) []int {
	var out []int
	for _, e := range errs {
		out = append(out, e.Rule)
	}
	return out
}

func TestValidateHistory_Clean(t *testing.T) {
	a := newAccount("100.00")
	_, err := a.Deposit(dec("20.50"), t0.Add(time.Minute))
	require.NoError(t, err)
	_, err = a.TransferOut(dec("60"), t0.Add(2*time.Minute))
	require.NoError(t, err)
	_, err = a.CreditInterest(dec("1.51"), t0.Add(3*time.Minute))
	require.NoError(t, err)

	assert.Empty(t, ValidateHistory(a))
}

func TestValidateHistory_Empty(t *testing.T) {
	a := &Account{Account: model.Account{AccountNumber: "X1"}}
	errs := ValidateHistory(a)
	require.Len(t, errs, 1)
	assert.Equal(t, RuleOpening, errs[0].Rule)
	assert.Equal(t, -1, errs[0].Index)
}

func TestValidateHistory_BrokenChain(t *testing.T) {
	a := newAccount("100.00")
	a.Transactions = append(a.Transactions, model.Transaction{
		Timestamp: t0, Kind: model.KindDeposit, Amount: dec("10"), Balance: dec("111"),
	})
	a.Balance = dec("111")

	errs := ValidateHistory(a)
	assert.Equal(t, []int{RuleChain}, rules(errs))
	assert.Contains(t, errs[0].Error(), "AC100#1")
}

func TestValidateHistory_FinalMismatch(t *testing.T) {
	a := newAccount("100.00")
	a.Balance = dec("90")
	assert.Equal(t, []int{RuleFinal}, rules(ValidateHistory(a)))
}

func TestValidateHistory_Cents(t *testing.T) {
	a := newAccount("100.00")
	a.Transactions = append(a.Transactions, model.Transaction{
		Timestamp: t0, Kind: model.KindDeposit, Amount: dec("0.005"), Balance: dec("100.005"),
	})
	a.Balance = dec("100.005")

	assert.Equal(t, []int{RuleCents, RuleCents}, rules(ValidateHistory(a)))
}

func TestValidateHistory_OrderAndKind(t *testing.T) {
	a := newAccount("100.00")
	a.Transactions = append(a.Transactions,
		model.Transaction{Timestamp: t0.Add(-time.Hour), Kind: model.KindWithdrawal, Amount: dec("10"), Balance: dec("90")},
		model.Transaction{Timestamp: t0, Kind: model.Kind("Refund"), Amount: dec("10"), Balance: dec("100")},
	)
	a.Balance = dec("90")

	assert.Equal(t, []int{RuleOrder, RuleKind}, rules(ValidateHistory(a)))
}

func TestValidateHistory_OpeningKind(t *testing.T) {
	a := &Account{Account: model.Account{AccountNumber: "X1", Balance: dec("5")}}
	a.Transactions = []model.Transaction{{Timestamp: t0, Kind: model.KindDeposit, Amount: dec("5"), Balance: dec("5")}}

	assert.Equal(t, []int{RuleOpening}, rules(ValidateHistory(a)))
}

func TestValidateHistory_Negative(t *testing.T) {
	a := newAccount("10.00")
	a.Transactions = append(a.Transactions, model.Transaction{
		Timestamp: t0, Kind: model.KindWithdrawal, Amount: dec("20"), Balance: dec("-10"),
	})
	a.Balance = dec("-10")

	assert.Equal(t, []int{RuleNonNegative}, rules(ValidateHistory(a)))
}
