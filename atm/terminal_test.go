package atm_test

import (
	"errors"
	"testing"

	"github.com/alovak/cardflow-atm/atm"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type callLog []string

func (c *callLog) record(name string) func(mock.Arguments) {
	return func(mock.Arguments) { *c = append(*c, name) }
}

type cardMock struct {
	mock.Mock
}

func (m *cardMock) IsBlocked() bool {
	return m.Called().Bool(0)
}

func (m *cardMock) CheckPin(pin int) bool {
	return m.Called(pin).Bool(0)
}

func (m *cardMock) Account() atm.Account {
	return m.Called().Get(0).(atm.Account)
}

type accountMock struct {
	mock.Mock
}

func (m *accountMock) Balance() (decimal.Decimal, error) {
	args := m.Called()
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *accountMock) Withdraw(amount decimal.Decimal) (decimal.Decimal, error) {
	args := m.Called(amount)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func amountOf(v decimal.Decimal) interface{} {
	return mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(v) })
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// acceptingCard returns a card that passes validation with pin 1111.
func acceptingCard(acc atm.Account) *cardMock {
	card := &cardMock{}
	card.On("IsBlocked").Return(false)
	card.On("CheckPin", 1111).Return(true)
	if acc != nil {
		card.On("Account").Return(acc)
	}
	return card
}

func activeTerminal(t *testing.T, reserve decimal.Decimal, card atm.Card) *atm.Terminal {
	t.Helper()

	terminal, err := atm.NewTerminal(reserve)
	require.NoError(t, err)
	require.True(t, terminal.ValidateSession(card, 1111))

	return terminal
}

func TestNewTerminal(t *testing.T) {
	values := []string{"0", "10", "9999.99", "0.01", "1000000000", "179769313486231570000000000000000"}

	for _, v := range values {
		terminal, err := atm.NewTerminal(dec(v))
		require.NoError(t, err)
		require.False(t, terminal.SessionActive())

		require.True(t, terminal.ValidateSession(acceptingCard(nil), 1111))

		reserve, err := terminal.Reserve()
		require.NoError(t, err)
		require.True(t, reserve.Equal(dec(v)), "reserve %s want %s", reserve, v)
	}
}

func TestNewTerminal_NegativeReserve(t *testing.T) {
	terminal, err := atm.NewTerminal(dec("-0.01"))

	require.ErrorIs(t, err, atm.ErrInvalidArgument)
	require.Nil(t, terminal)
}

func TestValidateSession(t *testing.T) {
	cases := []struct {
		name    string
		blocked bool
		pinOK   bool
		want    bool
	}{
		{"not blocked, valid pin", false, true, true},
		{"not blocked, wrong pin", false, false, false},
		{"blocked, wrong pin", true, false, false},
		{"blocked, valid pin", true, true, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			terminal, err := atm.NewTerminal(dec("1000"))
			require.NoError(t, err)

			card := &cardMock{}
			card.On("IsBlocked").Return(c.blocked)
			card.On("CheckPin", 1111).Return(c.pinOK)

			require.Equal(t, c.want, terminal.ValidateSession(card, 1111))
			require.Equal(t, c.want, terminal.SessionActive())

			card.AssertCalled(t, "IsBlocked")
			card.AssertCalled(t, "CheckPin", 1111)
		})
	}
}

func TestValidateSession_ChecksBlockedBeforePin(t *testing.T) {
	terminal, err := atm.NewTerminal(dec("1000"))
	require.NoError(t, err)

	var calls callLog
	card := &cardMock{}
	card.On("IsBlocked").Return(false).Run(calls.record("IsBlocked"))
	card.On("CheckPin", 1111).Return(true).Run(calls.record("CheckPin"))

	require.True(t, terminal.ValidateSession(card, 1111))
	require.Equal(t, callLog{"IsBlocked", "CheckPin"}, calls)
}

func TestValidateSession_RejectionKeepsSession(t *testing.T) {
	first := &accountMock{}
	first.On("Balance").Return(dec("500"), nil)
	terminal := activeTerminal(t, dec("1000"), acceptingCard(first))

	rejected := &cardMock{}
	rejected.On("IsBlocked").Return(true)
	rejected.On("CheckPin", 1111).Return(true)

	require.False(t, terminal.ValidateSession(rejected, 1111))
	require.True(t, terminal.SessionActive())

	balance, err := terminal.Balance()
	require.NoError(t, err)
	require.True(t, balance.Equal(dec("500")))
	rejected.AssertNotCalled(t, "Account")
}

func TestValidateSession_ReplacesCard(t *testing.T) {
	first := &accountMock{}
	second := &accountMock{}
	second.On("Balance").Return(dec("42"), nil)

	terminal := activeTerminal(t, dec("1000"), acceptingCard(first))
	require.True(t, terminal.ValidateSession(acceptingCard(second), 1111))

	balance, err := terminal.Balance()
	require.NoError(t, err)
	require.True(t, balance.Equal(dec("42")))
	first.AssertNotCalled(t, "Balance")
}

func TestSessionGatedCalls_WithoutSession(t *testing.T) {
	terminal, err := atm.NewTerminal(dec("1000"))
	require.NoError(t, err)

	// a rejected card does not open a session either
	card := &cardMock{}
	card.On("IsBlocked").Return(false)
	card.On("CheckPin", 1112).Return(false)
	require.False(t, terminal.ValidateSession(card, 1112))

	_, err = terminal.Reserve()
	require.ErrorIs(t, err, atm.ErrNoSession)

	_, err = terminal.Balance()
	require.ErrorIs(t, err, atm.ErrNoSession)

	_, err = terminal.Withdraw(dec("10000"))
	require.ErrorIs(t, err, atm.ErrNoSession)

	_, err = terminal.Withdraw(dec("-1"))
	require.ErrorIs(t, err, atm.ErrNoSession)
}

func TestBalance_Passthrough(t *testing.T) {
	acc := &accountMock{}
	terminal := activeTerminal(t, dec("1000"), acceptingCard(acc))

	for _, v := range []string{"0", "500", "-100", "0.01"} {
		acc.On("Balance").Return(dec(v), nil).Once()

		balance, err := terminal.Balance()
		require.NoError(t, err)
		require.True(t, balance.Equal(dec(v)))
	}
	acc.AssertNumberOfCalls(t, "Balance", 4)
}

func TestBalance_AccountError(t *testing.T) {
	boom := errors.New("boom")
	acc := &accountMock{}
	acc.On("Balance").Return(decimal.Zero, boom)
	terminal := activeTerminal(t, dec("1000"), acceptingCard(acc))

	_, err := terminal.Balance()
	require.ErrorIs(t, err, boom)
}

func TestWithdraw_NonPositiveAmount(t *testing.T) {
	for _, v := range []string{"0", "-0.01", "-500"} {
		// no Account expectation: the account must not be touched
		terminal := activeTerminal(t, dec("1000"), acceptingCard(nil))

		_, err := terminal.Withdraw(dec(v))
		require.ErrorIs(t, err, atm.ErrInvalidArgument)

		reserve, err := terminal.Reserve()
		require.NoError(t, err)
		require.True(t, reserve.Equal(dec("1000")))
	}
}

func TestWithdraw_NotEnoughMoneyInAccount(t *testing.T) {
	acc := &accountMock{}
	acc.On("Balance").Return(dec("50"), nil)
	terminal := activeTerminal(t, dec("1000"), acceptingCard(acc))

	_, err := terminal.Withdraw(dec("100"))
	require.ErrorIs(t, err, atm.ErrInsufficientAccountFunds)

	acc.AssertNotCalled(t, "Withdraw", mock.Anything)
	reserve, err := terminal.Reserve()
	require.NoError(t, err)
	require.True(t, reserve.Equal(dec("1000")))
}

func TestWithdraw_NotEnoughMoneyInAccount_Boundary(t *testing.T) {
	acc := &accountMock{}
	acc.On("Balance").Return(dec("100000.0"), nil)
	terminal := activeTerminal(t, dec("1000000"), acceptingCard(acc))

	_, err := terminal.Withdraw(dec("100000.01"))
	require.ErrorIs(t, err, atm.ErrInsufficientAccountFunds)
}

func TestWithdraw_NotEnoughMoneyInATM(t *testing.T) {
	acc := &accountMock{}
	acc.On("Balance").Return(dec("500"), nil)
	terminal := activeTerminal(t, dec("50"), acceptingCard(acc))

	_, err := terminal.Withdraw(dec("100"))
	require.ErrorIs(t, err, atm.ErrInsufficientReserve)

	acc.AssertNotCalled(t, "Withdraw", mock.Anything)
	reserve, err := terminal.Reserve()
	require.NoError(t, err)
	require.True(t, reserve.Equal(dec("50")))

	balance, err := terminal.Balance()
	require.NoError(t, err)
	require.True(t, balance.Equal(dec("500")))
}

func TestWithdraw(t *testing.T) {
	var calls callLog
	acc := &accountMock{}
	acc.On("Balance").Return(dec("500"), nil).Run(calls.record("Balance")).Once()
	acc.On("Withdraw", amountOf(dec("100"))).Return(dec("100"), nil).Run(calls.record("Withdraw")).Once()
	acc.On("Balance").Return(dec("400"), nil).Run(calls.record("Balance")).Once()

	card := &cardMock{}
	card.On("IsBlocked").Return(false)
	card.On("CheckPin", 1111).Return(true)
	terminal := activeTerminal(t, dec("1000"), card)
	card.On("Account").Return(acc).Run(calls.record("Account"))

	balance, err := terminal.Withdraw(dec("100"))
	require.NoError(t, err)
	require.True(t, balance.Equal(dec("400")), "balance %s", balance)

	reserve, err := terminal.Reserve()
	require.NoError(t, err)
	require.True(t, reserve.Equal(dec("900")), "reserve %s", reserve)

	require.Equal(t, callLog{"Account", "Balance", "Withdraw", "Balance"}, calls)
	acc.AssertNumberOfCalls(t, "Withdraw", 1)
	acc.AssertExpectations(t)
}

func TestWithdraw_Amounts(t *testing.T) {
	cases := []struct{ balance, amount string }{
		{"0.01", "0.01"},
		{"200.0", "100.0"},
		{"1000.0", "500.0"},
	}

	for _, c := range cases {
		acc := &accountMock{}
		after := dec(c.balance).Sub(dec(c.amount))
		acc.On("Balance").Return(dec(c.balance), nil).Once()
		acc.On("Withdraw", amountOf(dec(c.amount))).Return(dec(c.amount), nil).Once()
		acc.On("Balance").Return(after, nil).Once()
		terminal := activeTerminal(t, dec("1000"), acceptingCard(acc))

		balance, err := terminal.Withdraw(dec(c.amount))
		require.NoError(t, err)
		require.True(t, balance.Equal(after))

		reserve, err := terminal.Reserve()
		require.NoError(t, err)
		require.True(t, reserve.Equal(dec("1000").Sub(dec(c.amount))))
	}
}

func TestWithdraw_ReserveFollowsReportedDebit(t *testing.T) {
	acc := &accountMock{}
	acc.On("Balance").Return(dec("500"), nil).Once()
	acc.On("Withdraw", amountOf(dec("100"))).Return(dec("60"), nil).Once()
	acc.On("Balance").Return(dec("440"), nil).Once()
	terminal := activeTerminal(t, dec("1000"), acceptingCard(acc))

	balance, err := terminal.Withdraw(dec("100"))
	require.NoError(t, err)
	require.True(t, balance.Equal(dec("440")))

	reserve, err := terminal.Reserve()
	require.NoError(t, err)
	require.True(t, reserve.Equal(dec("940")), "reserve %s", reserve)
}

func TestWithdraw_AccountRefusesDebit(t *testing.T) {
	refused := errors.New("refused")
	acc := &accountMock{}
	acc.On("Balance").Return(dec("500"), nil).Once()
	acc.On("Withdraw", amountOf(dec("100"))).Return(decimal.Zero, refused).Once()
	terminal := activeTerminal(t, dec("1000"), acceptingCard(acc))

	_, err := terminal.Withdraw(dec("100"))
	require.ErrorIs(t, err, refused)

	reserve, err := terminal.Reserve()
	require.NoError(t, err)
	require.True(t, reserve.Equal(dec("1000")))
}
