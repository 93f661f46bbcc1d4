package order

import (
	"time"

	domain "purchase-order-backend/internal/domain/order"

	"github.com/shopspring/decimal"
)

type LineItemInput struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

type CreateOrderInput struct {
	SupplierName  string          `json:"supplier_name"`
	SupplierTaxID string          `json:"supplier_tax_id"`
	RequestedBy   string          `json:"requested_by"`
	Description   string          `json:"description"`
	Currency      string          `json:"currency"`
	Items         []LineItemInput `json:"items"`
}

type ListInput struct {
	Status string
	Page   int
	Limit  int
}

type LineItemDTO struct {
	Position    int             `json:"position"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type OrderDTO struct {
	ID              string          `json:"id"`
	Number          string          `json:"number"`
	Status          string          `json:"status"`
	SupplierName    string          `json:"supplier_name"`
	SupplierTaxID   string          `json:"supplier_tax_id,omitempty"`
	RequestedBy     string          `json:"requested_by"`
	Description     string          `json:"description,omitempty"`
	Currency        string          `json:"currency"`
	Total           decimal.Decimal `json:"total"`
	Items           []LineItemDTO   `json:"items"`
	ApproverID      *string         `json:"approver_id,omitempty"`
	ApprovedBy      *string         `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time      `json:"approved_at,omitempty"`
	ApprovalNote    *string         `json:"approval_note,omitempty"`
	RejectionReason *string         `json:"rejection_reason,omitempty"`
	StatusUpdatedAt time.Time       `json:"status_updated_at"`
	CreatedAt       time.Time       `json:"created_at"`
}

type ListDTO struct {
	Items []OrderDTO `json:"items"`
	Total int64      `json:"total"`
	Page  int        `json:"page"`
	Limit int        `json:"limit"`
}

func ToDTO(o *domain.Order) OrderDTO {
	items := make([]LineItemDTO, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, LineItemDTO{
			Position:    it.Position,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Subtotal:    it.Subtotal,
		})
	}
	return OrderDTO{
		ID:              o.ID,
		Number:          o.Number,
		Status:          string(o.Status),
		SupplierName:    o.SupplierName,
		SupplierTaxID:   o.SupplierTaxID,
		RequestedBy:     o.RequestedBy,
		Description:     o.Description,
		Currency:        o.Currency,
		Total:           o.Total,
		Items:           items,
		ApproverID:      o.ApproverID,
		ApprovedBy:      o.ApprovedBy,
		ApprovedAt:      o.ApprovedAt,
		ApprovalNote:    o.ApprovalNote,
		RejectionReason: o.RejectionReason,
		StatusUpdatedAt: o.StatusUpdatedAt,
		CreatedAt:       o.CreatedAt,
	}
}
