package models

import "time"

// PaymentProof is an uploaded receipt image attached to an installment.
// ImageKey is the stored object key under the upload base dir; ImageURL is
// the public path the file is served from.
type PaymentProof struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	InstallmentID uint   `gorm:"index;not null" json:"installmentId"`
	ImageURL      string `gorm:"size:512;not null" json:"imageUrl"`
	ImageKey      string `gorm:"size:512;not null" json:"imageKey"`
	ContentType   string `gorm:"size:128" json:"contentType,omitempty"`

	UploadedAt time.Time `gorm:"not null" json:"uploadedAt"`
}
