package sales

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bitetrack/bitetrack-backend/pkg/db/models"
)

// SaleItemDTO is one snapshotted line of a sale.
type SaleItemDTO struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	PriceAtSale decimal.Decimal `json:"price_at_sale"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// SaleDTO is the sale payload returned to clients. OutstandingAmount is
// derived at read time and floored at zero when the sale is overpaid.
type SaleDTO struct {
	ID                uuid.UUID       `json:"id"`
	CustomerID        uuid.UUID       `json:"customer_id"`
	SellerID          uuid.UUID       `json:"seller_id"`
	Items             []SaleItemDTO   `json:"items"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	AmountPaid        decimal.Decimal `json:"amount_paid"`
	OutstandingAmount decimal.Decimal `json:"outstanding_amount"`
	Settled           bool            `json:"settled"`
	SettledAt         *time.Time      `json:"settled_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// NewSaleDTO builds a DTO from the persisted model.
func NewSaleDTO(sale *models.Sale) *SaleDTO {
	items := make([]SaleItemDTO, 0, len(sale.Items))
	for _, item := range sale.Items {
		items = append(items, SaleItemDTO{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			PriceAtSale: item.PriceAtSale,
			LineTotal:   item.LineTotal,
		})
	}

	outstanding := sale.TotalAmount.Sub(sale.AmountPaid)
	if outstanding.IsNegative() {
		outstanding = decimal.Zero
	}

	return &SaleDTO{
		ID:                sale.ID,
		CustomerID:        sale.CustomerID,
		SellerID:          sale.SellerID,
		Items:             items,
		TotalAmount:       sale.TotalAmount,
		AmountPaid:        sale.AmountPaid,
		OutstandingAmount: outstanding,
		Settled:           sale.Settled,
		SettledAt:         sale.SettledAt,
		CreatedAt:         sale.CreatedAt,
		UpdatedAt:         sale.UpdatedAt,
	}
}
