package subscription

import (
	"fmt"
	"strings"
	"time"
)

// newTransactionReference builds the human-quotable payment reference for a
// transaction, e.g. "PD-20260829-9F3C21AB". The hex segment comes from the
// transaction's UUID, so references are unique as long as transaction IDs are.
func newTransactionReference(transactionID string, now time.Time) string {
	short := strings.ToUpper(strings.ReplaceAll(transactionID, "-", "")[:8])
	return fmt.Sprintf("PD-%s-%s", now.UTC().Format("20060102"), short)
}
