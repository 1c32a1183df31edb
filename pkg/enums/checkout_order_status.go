package enums

import "fmt"

// CheckoutOrderStatus tracks a hosted-checkout order.
type CheckoutOrderStatus string

const (
	CheckoutOrderStatusCreated CheckoutOrderStatus = "created"
	CheckoutOrderStatusPaid    CheckoutOrderStatus = "paid"
	CheckoutOrderStatusFailed  CheckoutOrderStatus = "failed"
	CheckoutOrderStatusExpired CheckoutOrderStatus = "expired"
)

var validCheckoutOrderStatuses = []CheckoutOrderStatus{
	CheckoutOrderStatusCreated,
	CheckoutOrderStatusPaid,
	CheckoutOrderStatusFailed,
	CheckoutOrderStatusExpired,
}

// String implements fmt.Stringer.
func (v CheckoutOrderStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is known.
func (v CheckoutOrderStatus) IsValid() bool {
	for _, candidate := range validCheckoutOrderStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseCheckoutOrderStatus converts raw input into a CheckoutOrderStatus.
func ParseCheckoutOrderStatus(value string) (CheckoutOrderStatus, error) {
	for _, candidate := range validCheckoutOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid checkout order status %q", value)
}
