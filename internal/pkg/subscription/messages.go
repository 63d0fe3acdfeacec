package subscription

import (
	"fmt"

	"github.com/primedrive/backend/app/models"
)

// statusMessage renders the fixed human-readable message template for a
// transaction's current status.
func statusMessage(status, tierName string, amountPula int) string {
	switch status {
	case models.PAYMENT_STATUS_PENDING:
		return fmt.Sprintf("Payment pending. Complete your P%d payment to activate %s tier.", amountPula, tierName)
	case models.PAYMENT_STATUS_AWAITING_VERIFICATION:
		return fmt.Sprintf("Payment submitted. Waiting for verification of your %s tier upgrade.", tierName)
	case models.PAYMENT_STATUS_COMPLETED:
		return fmt.Sprintf("Payment complete! Your %s tier is active.", tierName)
	case models.PAYMENT_STATUS_FAILED:
		return "Payment failed. Please try again or contact support."
	case models.PAYMENT_STATUS_REFUNDED:
		return "This payment has been refunded."
	default:
		return "Unknown status"
	}
}

func manualInstructions(method string, amountPula int, whatsappNumber, reference string) string {
	switch method {
	case models.PAYMENT_METHOD_MYZAKA:
		return fmt.Sprintf(
			"Send P%d via MyZaka to %s. Use reference: %s. After payment, confirm with your MyZaka receipt reference.",
			amountPula, whatsappNumber, reference,
		)
	default:
		return fmt.Sprintf(
			"Send P%d to %s. Use reference: %s. Contact us on WhatsApp with proof of payment for activation.",
			amountPula, whatsappNumber, reference,
		)
	}
}

func gatewayFallbackInstructions(amountPula int, whatsappNumber, reference string) string {
	return fmt.Sprintf(
		"Orange Money is temporarily unavailable. Please send P%d via Orange Money to %s with reference: %s, then confirm your payment.",
		amountPula, whatsappNumber, reference,
	)
}
