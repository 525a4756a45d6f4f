package domain

import "time"

type Transaction struct {
	ID                   string            `json:"id" gorm:"primaryKey;size:36"`
	SellerID             string            `json:"sellerId" gorm:"index;size:36;not null"`
	OrderID              string            `json:"orderId" gorm:"index;size:36;not null"`
	PaymentIntentID      string            `json:"stripePaymentIntentId" gorm:"uniqueIndex;size:255;not null"`
	AmountTotal          int64             `json:"amountTotal" gorm:"not null"`
	ApplicationFeeAmount int64             `json:"applicationFeeAmount" gorm:"not null"`
	SellerTransferAmount int64             `json:"sellerTransferAmount" gorm:"not null"`
	Currency             string            `json:"currency" gorm:"size:3;not null"`
	BuyerEmail           string            `json:"buyerEmail" gorm:"size:255"`
	Status               TransactionStatus `json:"status" gorm:"size:20;not null;index"`
	CreatedAt            time.Time         `json:"createdAt"`
	UpdatedAt            time.Time         `json:"updatedAt"`
}
