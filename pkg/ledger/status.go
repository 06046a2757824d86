package ledger

import (
	"time"

	"lendtrack/models"
)

// CalculatePaymentStatusAt classifies a loan's installments relative to a
// reference time. An empty list is pending; a loan is paid only when every
// installment is paid; any installment explicitly overdue, or unpaid with
// a due date strictly before now, makes the loan overdue.
func CalculatePaymentStatusAt(installments []models.Installment, now time.Time) models.PaymentStatus {
	if len(installments) == 0 {
		return models.PaymentPending
	}

	paid := 0
	overdue := 0
	for _, inst := range installments {
		if inst.Status == models.InstallmentPaid {
			paid++
			continue
		}
		pastDue := !inst.DueDate.IsZero() && inst.DueDate.Before(now)
		if inst.Status == models.InstallmentOverdue || pastDue {
			overdue++
		}
	}

	if paid == len(installments) {
		return models.PaymentPaid
	}
	if overdue > 0 {
		return models.PaymentOverdue
	}
	return models.PaymentPending
}

// CalculatePaymentStatus classifies against the wall clock.
func CalculatePaymentStatus(installments []models.Installment) models.PaymentStatus {
	return CalculatePaymentStatusAt(installments, time.Now())
}

// DeriveLoanStatusAt maps the payment status onto the loan lifecycle.
// Cancellation is sticky: a cancelled loan stays cancelled whatever its
// installments say.
func DeriveLoanStatusAt(installments []models.Installment, previous models.LoanStatus, now time.Time) models.LoanStatus {
	if previous == models.LoanCancelled {
		return models.LoanCancelled
	}
	if CalculatePaymentStatusAt(installments, now) == models.PaymentPaid {
		return models.LoanCompleted
	}
	return models.LoanActive
}

// DeriveLoanStatus derives against the wall clock.
func DeriveLoanStatus(installments []models.Installment, previous models.LoanStatus) models.LoanStatus {
	return DeriveLoanStatusAt(installments, previous, time.Now())
}

// NormalizeLoanStatus coerces unknown persisted values to active.
func NormalizeLoanStatus(s models.LoanStatus) models.LoanStatus {
	switch s {
	case models.LoanActive, models.LoanCompleted, models.LoanCancelled:
		return s
	}
	return models.LoanActive
}
