package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Installment is one scheduled repayment slice of a loan's total value.
type Installment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	LoanID uint `gorm:"index;not null" json:"loanId"`
	Number int  `gorm:"not null" json:"installmentNumber"` // 1..N within the loan

	Value    decimal.Decimal   `gorm:"type:numeric(14,2);not null" json:"value"`
	DueDate  time.Time         `gorm:"index;not null" json:"dueDate"`
	Status   InstallmentStatus `gorm:"size:16;not null;default:pending" json:"status"`
	PaidDate *time.Time        `json:"paidDate"`

	Proofs []PaymentProof `gorm:"foreignKey:InstallmentID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"paymentProofs,omitempty"`
}
