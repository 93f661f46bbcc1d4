// Package sharelink renders the approval URL and the prefilled WhatsApp
// message an order owner forwards to the approver.
package sharelink

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"purchase-order-backend/internal/domain/order"
)

type Link struct {
	URL         string `json:"url"`
	WhatsAppURL string `json:"whatsapp_url"`
	Message     string `json:"message"`
}

type Formatter struct {
	baseURL      string
	defaultPhone string
}

func New(baseURL, defaultPhone string) *Formatter {
	return &Formatter{baseURL: strings.TrimRight(baseURL, "/"), defaultPhone: defaultPhone}
}

// ApprovalURL is the page the approver opens; it calls GET /approval-order.
func (f *Formatter) ApprovalURL(token string) string {
	return f.baseURL + "/approval-order?token=" + url.QueryEscape(token)
}

// Build assembles the URL, message and wa.me link. An empty phone falls back to
// the configured default; with neither, WhatsApp lets the sender pick a chat.
func (f *Formatter) Build(token string, o *order.Order, expiresAt time.Time, phone string) Link {
	link := f.ApprovalURL(token)
	msg := fmt.Sprintf(
		"Purchase order %s from %s for %s %s is waiting for your approval.\nReview it here: %s\nThis link is valid until %s UTC.",
		o.Number, o.SupplierName, o.Total.StringFixed(2), o.Currency, link,
		expiresAt.UTC().Format("2006-01-02 15:04"),
	)
	if phone == "" {
		phone = f.defaultPhone
	}
	return Link{URL: link, WhatsAppURL: whatsAppURL(phone, msg), Message: msg}
}

func whatsAppURL(phone, text string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
	return "https://wa.me/" + digits + "?text=" + url.QueryEscape(text)
}
