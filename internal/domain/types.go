// Package domain defines the normalized CRM types shared by the gateway,
// the deal store and the terminal UI. These types are independent of the
// record API's loosely-typed wire shape.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// UnknownContact labels records whose contact is missing or unresolvable.
const UnknownContact = "Unknown Contact"

// Contact is a person the sales team talks to.
type Contact struct {
	ID              string
	Name            string
	Email           string
	Phone           string
	Company         string // Free-text company name
	CompanyID       string // Linked company record, empty if none
	Tags            []string
	Notes           string
	CreatedAt       time.Time
	LastContactedAt time.Time
}

// Company is an organization contacts belong to.
type Company struct {
	ID          string
	Name        string
	Industry    string
	Phone       string
	Website     string
	Revenue     decimal.Decimal
	Employees   int
	Address     string
	Description string
	Tags        []string
	CreatedAt   time.Time
}

// Quote is a priced offer sent to a company.
type Quote struct {
	ID             string
	Name           string
	Title          string
	CompanyID      string
	ContactID      string
	DealID         string
	QuoteDate      time.Time
	Status         string
	DeliveryMethod string
	ExpiresOn      time.Time
	Amount         decimal.Decimal
	Description    string
}

// Expired reports whether the quote's expiry date has passed.
func (q Quote) Expired(now time.Time) bool {
	return !q.ExpiresOn.IsZero() && now.After(q.ExpiresOn)
}

// SalesOrder is a confirmed order, usually converted from a quote.
type SalesOrder struct {
	ID            string
	Name          string
	Title         string
	CompanyID     string
	ContactID     string
	DealID        string
	QuoteID       string
	OrderDate     time.Time
	Status        string
	PaymentMethod string
	TotalAmount   decimal.Decimal
}

// Activity is a logged interaction with a contact.
type Activity struct {
	ID          string
	Type        string
	ContactID   string
	DealID      string
	Description string
	Timestamp   time.Time
}

// Quote statuses.
const (
	QuoteDraft    = "Draft"
	QuoteSent     = "Sent"
	QuoteAccepted = "Accepted"
	QuoteRejected = "Rejected"
	QuoteExpired  = "Expired"
)

// Sales order statuses.
const (
	OrderDraft     = "Draft"
	OrderConfirmed = "Confirmed"
	OrderShipped   = "Shipped"
	OrderDelivered = "Delivered"
	OrderCancelled = "Cancelled"
	OrderReturned  = "Returned"
)

// Activity types.
const (
	ActivityCall    = "call"
	ActivityEmail   = "email"
	ActivityMeeting = "meeting"
	ActivityNote    = "note"
)

// Activity field names used when logging a new activity.
const (
	FieldActivityType        = "type"
	FieldActivityDescription = "description"
	FieldActivityDealID      = "dealId"
	FieldActivityTimestamp   = "timestamp"
)

// QuoteStatuses lists quote statuses in the order filters cycle through them.
func QuoteStatuses() []string {
	return []string{QuoteDraft, QuoteSent, QuoteAccepted, QuoteRejected, QuoteExpired}
}

// OrderStatuses lists sales order statuses in filter order.
func OrderStatuses() []string {
	return []string{OrderDraft, OrderConfirmed, OrderShipped, OrderDelivered, OrderCancelled, OrderReturned}
}

// ActivityTypes lists the kinds of activity that can be logged, in the
// order the type selector cycles through them.
func ActivityTypes() []string {
	return []string{ActivityCall, ActivityEmail, ActivityMeeting, ActivityNote}
}

// DeliveryMethods lists how a quote can be sent.
func DeliveryMethods() []string {
	return []string{"Email", "Post", "In Person"}
}

// PaymentMethods lists how a sales order can be paid.
func PaymentMethods() []string {
	return []string{"Credit Card", "Bank Transfer", "Cash", "Check", "Other"}
}
