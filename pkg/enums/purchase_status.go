package enums

import "fmt"

// PurchaseStatus describes the settlement state of a one-time purchase.
// Purchases are only recorded after the provider reports completion, so
// "completed" is the only state the reconciler ever writes.
type PurchaseStatus string

const (
	PurchaseStatusCompleted PurchaseStatus = "completed"
)

var validPurchaseStatuses = []PurchaseStatus{
	PurchaseStatusCompleted,
}

// String implements fmt.Stringer.
func (s PurchaseStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s PurchaseStatus) IsValid() bool {
	for _, candidate := range validPurchaseStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParsePurchaseStatus converts raw input into a PurchaseStatus.
func ParsePurchaseStatus(value string) (PurchaseStatus, error) {
	for _, candidate := range validPurchaseStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid purchase status %q", value)
}
