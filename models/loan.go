package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Loan represents money lent to a friend, repaid in installments.
// TotalValue and Profit are derived at creation time from the initial
// value and interest rate and stored alongside the inputs.
type Loan struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	FriendName  string `gorm:"size:255;not null" json:"friendName"`
	FriendEmail string `gorm:"size:255" json:"friendEmail,omitempty"`

	InitialValue       decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"initialValue"`
	InterestRate       decimal.Decimal `gorm:"type:numeric(7,3);not null" json:"interestRate"`
	LatePaymentPenalty decimal.Decimal `gorm:"type:numeric(7,3);not null" json:"latePaymentPenalty"`
	TotalValue         decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"totalValue"`
	Profit             decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"profit"`
	TotalLateFees      decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"totalLateFees"`

	LoanDate         time.Time `gorm:"not null" json:"loanDate"`
	FinalPaymentDate time.Time `gorm:"not null" json:"finalPaymentDate"`

	Status LoanStatus `gorm:"size:16;not null;default:active" json:"status"`
	Notes  string     `gorm:"size:2048" json:"notes"`

	// Installments is a one-to-many relation; all installments are created
	// together with the loan and removed with it.
	Installments []Installment `gorm:"foreignKey:LoanID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"installments,omitempty"`
}
