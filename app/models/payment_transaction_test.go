package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPaymentTransactionIsTerminal(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{status: PAYMENT_STATUS_PENDING, want: false},
		{status: PAYMENT_STATUS_AWAITING_VERIFICATION, want: false},
		{status: PAYMENT_STATUS_COMPLETED, want: true},
		{status: PAYMENT_STATUS_FAILED, want: true},
		{status: PAYMENT_STATUS_REFUNDED, want: true},
	}

	for _, tt := range tests {
		txn := &PaymentTransaction{Status: tt.status}
		assert.Equal(t, tt.want, txn.IsTerminal(), "status %s", tt.status)
	}
}

func TestNonTerminalPaymentStatuses(t *testing.T) {
	statuses := NonTerminalPaymentStatuses()

	assert.ElementsMatch(t, []string{PAYMENT_STATUS_PENDING, PAYMENT_STATUS_AWAITING_VERIFICATION}, statuses)
}

func TestUserHasSubscriptionExpired(t *testing.T) {
	now := time.Now()

	assert.False(t, (&User{}).HasSubscriptionExpired(now))

	future := now.Add(time.Hour)
	assert.False(t, (&User{SubscriptionExpiresAt: &future}).HasSubscriptionExpired(now))

	// expiry is inclusive: exactly at the boundary is still active
	assert.False(t, (&User{SubscriptionExpiresAt: &now}).HasSubscriptionExpired(now))

	past := now.Add(-time.Minute)
	assert.True(t, (&User{SubscriptionExpiresAt: &past}).HasSubscriptionExpired(now))
}
