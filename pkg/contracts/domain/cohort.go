package domain

import "fmt"

// Status is the monthly lifecycle label of a customer
type Status string

const (
	StatusNew         Status = "New"
	StatusReturning   Status = "Returning"
	StatusChurned     Status = "Churned"
	StatusReactivated Status = "Reactivated"
	// StatusUnknown marks rows outside the cohort window or matched by no rule
	StatusUnknown Status = "Unknown"
)

// Statuses lists the lifecycle labels in display order
func Statuses() []Status {
	return []Status{StatusNew, StatusReturning, StatusReactivated, StatusChurned}
}

// ParseStatus parses a status label
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusNew, StatusReturning, StatusChurned, StatusReactivated, StatusUnknown:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// CustomerMonthStatus is the lifecycle label of one customer in one month
type CustomerMonthStatus struct {
	UserID string `json:"user_id"`
	Month  Month  `json:"month"`
	Status Status `json:"status"`
}
