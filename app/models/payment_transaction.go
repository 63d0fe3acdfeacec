package models

import "time"

// Payment transaction statuses. pending and awaiting_verification are the only
// non-terminal states; completed, failed and refunded are terminal and never
// transition again. refunded is written by an external back-office process only.
const (
	PAYMENT_STATUS_PENDING               = "pending"
	PAYMENT_STATUS_AWAITING_VERIFICATION = "awaiting_verification"
	PAYMENT_STATUS_COMPLETED             = "completed"
	PAYMENT_STATUS_FAILED                = "failed"
	PAYMENT_STATUS_REFUNDED              = "refunded"
)

const (
	PAYMENT_METHOD_ORANGE_MONEY = "orange_money"
	PAYMENT_METHOD_MYZAKA       = "myzaka"
	PAYMENT_METHOD_MANUAL       = "manual"
)

// Internal gateway status tag written when a callback's amount does not match
// the transaction's recorded amount.
const GATEWAY_STATUS_AMOUNT_MISMATCH = "AMOUNT_MISMATCH"

// PaymentTransaction records one attempt to pay for a tier upgrade. Rows are
// never deleted; they form the audit trail of the payment lifecycle.
type PaymentTransaction struct {
	ID                       string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID                   string     `gorm:"type:varchar(36);not null;index" json:"user_id"`
	TierID                   uint       `gorm:"not null;index" json:"-"`
	AmountPula               int        `gorm:"not null" json:"amount_pula"`
	PaymentMethod            string     `gorm:"type:varchar(20);not null" json:"payment_method"`
	TransactionReference     string     `gorm:"type:varchar(40);uniqueIndex" json:"transaction_reference"`
	Status                   string     `gorm:"type:varchar(30);not null;default:'pending';index" json:"status"`
	OrangeMoneyOrderID       string     `gorm:"type:varchar(40);default:null;index" json:"-"`
	OrangeMoneyPayToken      string     `gorm:"type:varchar(191);default:null" json:"-"`
	OrangeMoneyPayURL        string     `gorm:"type:varchar(255);default:null" json:"-"`
	OrangeMoneyTransactionID string     `gorm:"type:varchar(100);default:null" json:"-"`
	OrangeMoneyStatus        string     `gorm:"type:varchar(40);default:null" json:"-"`
	UserPaymentReference     string     `gorm:"type:varchar(100);default:null" json:"user_payment_reference,omitempty"`
	AdminNotes               string     `gorm:"type:text" json:"-"`
	CreatedAt                time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt                time.Time  `gorm:"autoUpdateTime" json:"-"`
	CompletedAt              *time.Time `gorm:"type:timestamp;default:null" json:"completed_at,omitempty"`

	Tier SubscriptionTier `gorm:"foreignKey:TierID" json:"-"`
}

// IsTerminal reports whether the transaction reached a final state. Terminal
// transactions are immutable; callbacks and admin actions must treat them as
// already processed.
func (t *PaymentTransaction) IsTerminal() bool {
	switch t.Status {
	case PAYMENT_STATUS_COMPLETED, PAYMENT_STATUS_FAILED, PAYMENT_STATUS_REFUNDED:
		return true
	default:
		return false
	}
}

// NonTerminalPaymentStatuses lists the statuses a transaction can still
// transition out of. Used as the expected-status guard in conditional updates.
func NonTerminalPaymentStatuses() []string {
	return []string{PAYMENT_STATUS_PENDING, PAYMENT_STATUS_AWAITING_VERIFICATION}
}
