package order

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound          = errors.New("order not found")
	ErrInvalidTransition = errors.New("order status transition not allowed")
	ErrNoItems           = errors.New("order must have at least one item")
	ErrItemsLocked       = errors.New("order items can only change while the order is created")
)

// Order is a purchase order ("orden de compra"). Status is only moved through
// Transition, Approve and Reject.
type Order struct {
	ID              string          `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Number          string          `gorm:"column:number;size:32;not null;uniqueIndex:ux_orders_number" json:"number"`
	Status          Status          `gorm:"column:status;type:varchar(20);not null;default:'created';index" json:"status"`
	SupplierName    string          `gorm:"column:supplier_name;size:200;not null" json:"supplier_name"`
	SupplierTaxID   string          `gorm:"column:supplier_tax_id;size:32" json:"supplier_tax_id"`
	RequestedBy     string          `gorm:"column:requested_by;size:120;not null" json:"requested_by"`
	Description     string          `gorm:"column:description;type:text" json:"description"`
	Currency        string          `gorm:"column:currency;size:3;not null;default:'CLP'" json:"currency"`
	Total           decimal.Decimal `gorm:"column:total;type:numeric(14,2);not null" json:"total"`
	ApproverID      *string         `gorm:"column:approver_id;size:64" json:"approver_id,omitempty"`
	ApprovedBy      *string         `gorm:"column:approved_by;size:120" json:"approved_by,omitempty"`
	ApprovedAt      *time.Time      `gorm:"column:approved_at" json:"approved_at,omitempty"`
	ApprovalNote    *string         `gorm:"column:approval_note;type:text" json:"approval_note,omitempty"`
	RejectionReason *string         `gorm:"column:rejection_reason;type:text" json:"rejection_reason,omitempty"`
	StatusUpdatedAt time.Time       `gorm:"column:status_updated_at" json:"status_updated_at"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	Items []LineItem `gorm:"foreignKey:OrderID;references:ID" json:"items"`
}

func (Order) TableName() string { return "orders" }

type LineItem struct {
	ID          uint64          `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	OrderID     string          `gorm:"column:order_id;type:uuid;not null;index" json:"-"`
	Position    int             `gorm:"column:position;not null" json:"position"`
	Description string          `gorm:"column:description;size:300;not null" json:"description"`
	Quantity    decimal.Decimal `gorm:"column:quantity;type:numeric(12,3);not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:numeric(14,2);not null" json:"unit_price"`
	Subtotal    decimal.Decimal `gorm:"column:subtotal;type:numeric(14,2);not null" json:"subtotal"`
}

func (LineItem) TableName() string { return "order_items" }

// Actor is whoever made an approve/reject decision. Name is mandatory, ID is
// whatever identity the caller has (email, phone, employee code).
type Actor struct {
	ID   string
	Name string
}

// SetItems replaces the items, numbers them and recomputes subtotals and total.
func (o *Order) SetItems(items []LineItem) error {
	if len(items) == 0 {
		return ErrNoItems
	}
	out := make([]LineItem, len(items))
	for i, it := range items {
		it.ID = 0
		it.OrderID = o.ID
		it.Position = i + 1
		it.Subtotal = it.Quantity.Mul(it.UnitPrice).Round(2)
		out[i] = it
	}
	o.Items = out
	o.RecomputeTotal()
	return nil
}

// RecomputeTotal derives Total from the current items.
func (o *Order) RecomputeTotal() {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.Subtotal)
	}
	o.Total = total.Round(2)
}

// Transition moves the order to next if the transition table allows it.
func (o *Order) Transition(next Status, at time.Time) error {
	if !o.Status.CanTransitionTo(next) {
		return ErrInvalidTransition
	}
	o.Status = next
	o.StatusUpdatedAt = at.UTC()
	return nil
}

// Approve records the approval decision as transition payload.
func (o *Order) Approve(actor Actor, note string, at time.Time) error {
	if err := o.Transition(StatusApproved, at); err != nil {
		return err
	}
	o.setDecider(actor, at)
	if note != "" {
		o.ApprovalNote = &note
	}
	return nil
}

// Reject records the rejection decision; reason must already be validated.
func (o *Order) Reject(actor Actor, reason string, at time.Time) error {
	if err := o.Transition(StatusRejected, at); err != nil {
		return err
	}
	o.setDecider(actor, at)
	o.RejectionReason = &reason
	return nil
}

func (o *Order) setDecider(actor Actor, at time.Time) {
	name := actor.Name
	ts := at.UTC()
	o.ApprovedBy = &name
	o.ApprovedAt = &ts
	if actor.ID != "" {
		aid := actor.ID
		o.ApproverID = &aid
	}
}
