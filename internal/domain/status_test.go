package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to TransactionStatus
		ok       bool
	}{
		{TransactionPending, TransactionSucceeded, true},
		{TransactionPending, TransactionFailed, true},
		{TransactionFailed, TransactionSucceeded, true},
		{TransactionSucceeded, TransactionSucceeded, true},
		{TransactionFailed, TransactionFailed, true},
		{TransactionFailed, TransactionPending, true},
		{TransactionSucceeded, TransactionFailed, false},
		{TransactionSucceeded, TransactionPending, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.ok, CanTransition(c.from, c.to), "%s -> %s", c.from, c.to)
	}
}

func TestParseStatuses(t *testing.T) {
	s, err := ParseAccountStatus("enabled")
	assert.NoError(t, err)
	assert.Equal(t, AccountEnabled, s)

	_, err = ParseAccountStatus("active")
	assert.Error(t, err)

	ts, err := ParseTransactionStatus("failed")
	assert.NoError(t, err)
	assert.Equal(t, TransactionFailed, ts)

	_, err = ParseTransactionStatus("refunded")
	assert.Error(t, err)
}

func TestAccountStatusFor(t *testing.T) {
	assert.Equal(t, AccountEnabled, AccountStatusFor(true))
	assert.Equal(t, AccountRestricted, AccountStatusFor(false))
}

func TestSellerReadyForPayments(t *testing.T) {
	acct := "acct_123"
	s := &Seller{}
	assert.Equal(t, "", s.AccountID())
	assert.False(t, s.ReadyForPayments())

	s.PaymentAccountID = &acct
	assert.False(t, s.ReadyForPayments())

	s.OnboardingCompleted = true
	assert.True(t, s.ReadyForPayments())
}

func TestPaymentIntentReusable(t *testing.T) {
	for _, st := range []IntentStatus{IntentRequiresPaymentMethod, IntentRequiresAction, IntentProcessing} {
		assert.True(t, (&PaymentIntent{Status: st}).Reusable(), st)
	}
	assert.False(t, (&PaymentIntent{Status: IntentCanceled}).Reusable())
	assert.False(t, (&PaymentIntent{Status: IntentSucceeded}).Reusable())
}
