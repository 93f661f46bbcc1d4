package approval

import (
	"time"

	domainApproval "purchase-order-backend/internal/domain/approval"
	domainOrder "purchase-order-backend/internal/domain/order"
	ucOrder "purchase-order-backend/internal/usecase/order"
)

type IssueOptions struct {
	// Phone overrides the configured approver number for the WhatsApp link.
	Phone string
}

type IssueResult struct {
	Token       string           `json:"token"`
	IssuedAt    time.Time        `json:"issued_at"`
	ExpiresAt   time.Time        `json:"expires_at"`
	URL         string           `json:"url"`
	WhatsAppURL string           `json:"whatsapp_url"`
	Message     string           `json:"message"`
	Order       ucOrder.OrderDTO `json:"order"`
}

// ReviewDTO is what the approver sees before deciding.
type ReviewDTO struct {
	Order     ucOrder.OrderDTO `json:"order"`
	IssuedAt  time.Time        `json:"issued_at"`
	ExpiresAt time.Time        `json:"expires_at"`
}

type ResolveInput struct {
	Token    string
	Actor    domainOrder.Actor
	Decision domainApproval.Decision
}

type ResolvedDTO struct {
	Order      ucOrder.OrderDTO      `json:"order"`
	Action     domainApproval.Action `json:"action"`
	ResolvedAt time.Time             `json:"resolved_at"`
}
