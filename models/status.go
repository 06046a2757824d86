package models

// InstallmentStatus classifies a single installment.
type InstallmentStatus string

const (
	InstallmentPending InstallmentStatus = "pending"
	InstallmentPaid    InstallmentStatus = "paid"
	InstallmentOverdue InstallmentStatus = "overdue"
)

// ValidInstallmentStatus reports whether s is one of the known values.
func ValidInstallmentStatus(s InstallmentStatus) bool {
	switch s {
	case InstallmentPending, InstallmentPaid, InstallmentOverdue:
		return true
	}
	return false
}

// PaymentStatus is the aggregate classification of a loan's installments.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentOverdue PaymentStatus = "overdue"
)

// LoanStatus is the loan lifecycle state, independent of (but derived
// from) the payment status.
type LoanStatus string

const (
	LoanActive    LoanStatus = "active"
	LoanCompleted LoanStatus = "completed"
	LoanCancelled LoanStatus = "cancelled"
)
