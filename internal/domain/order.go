package domain

import "time"

type OrderItem struct {
	ID          string `json:"id" gorm:"primaryKey;size:36"`
	OrderID     string `json:"orderId" gorm:"index;size:36;not null"`
	ProductID   string `json:"productId" gorm:"size:36;not null"`
	ProductName string `json:"productName" gorm:"size:255;not null"`
	ProductSku  string `json:"productSku,omitempty" gorm:"size:128"`
	Quantity    int    `json:"quantity" gorm:"not null"`
	UnitPrice   int64  `json:"unitPrice" gorm:"not null"`
	TotalPrice  int64  `json:"totalPrice" gorm:"not null"`
}

type Order struct {
	ID                string            `json:"id" gorm:"primaryKey;size:36"`
	SellerID          string            `json:"sellerId" gorm:"index;size:36;not null"`
	Seller            *Seller           `json:"seller,omitempty" gorm:"foreignKey:SellerID"`
	BuyerEmail        string            `json:"buyerEmail" gorm:"size:255;not null"`
	BuyerName         string            `json:"buyerName,omitempty" gorm:"size:255"`
	BuyerPhone        string            `json:"buyerPhone,omitempty" gorm:"size:64"`
	Subtotal          int64             `json:"subtotal" gorm:"not null"`
	ShippingAmount    int64             `json:"shippingAmount" gorm:"not null"`
	TaxAmount         int64             `json:"taxAmount" gorm:"not null"`
	TotalAmount       int64             `json:"totalAmount" gorm:"not null"`
	Status            OrderStatus       `json:"status" gorm:"size:20;not null"`
	PaymentStatus     PaymentStatus     `json:"paymentStatus" gorm:"size:20;not null"`
	FulfillmentStatus FulfillmentStatus `json:"fulfillmentStatus" gorm:"size:20;not null"`
	Notes             string            `json:"notes,omitempty" gorm:"type:text"`
	Items             []OrderItem       `json:"items" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Transactions      []Transaction     `json:"transactions" gorm:"foreignKey:OrderID"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`
}

// LineItem is the client-supplied part of an order item.
type LineItem struct {
	ProductID   string
	ProductName string
	ProductSku  string
	Quantity    int
	UnitPrice   int64
}

// NewOrder builds an unpaid order for sellerID with totals computed from
// items. Client-submitted totals are never consulted. IDs are left to the
// caller.
func NewOrder(sellerID string, items []LineItem, shipping, tax int64, now time.Time) (*Order, error) {
	t, err := ComputeTotals(items, shipping, tax)
	if err != nil {
		return nil, err
	}
	o := &Order{
		SellerID:          sellerID,
		ShippingAmount:    shipping,
		TaxAmount:         tax,
		Status:            OrderPending,
		PaymentStatus:     PaymentUnpaid,
		FulfillmentStatus: FulfillmentPending,
		Items:             make([]OrderItem, 0, len(items)),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	for _, it := range items {
		line, _ := LineTotal(it.Quantity, it.UnitPrice)
		o.Items = append(o.Items, OrderItem{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			ProductSku:  it.ProductSku,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			TotalPrice:  line,
		})
	}
	o.Subtotal = t.Subtotal
	o.TotalAmount = t.Total
	return o, nil
}

func (o *Order) Paid() bool {
	return o.PaymentStatus == PaymentPaid
}
