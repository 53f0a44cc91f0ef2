package store

import (
	"github.com/jackc/pgx/v5/pgtype"
)

// OrderStatus enumerates order lifecycle states.
type OrderStatus string

const (
	OrderStatusPENDINGPAYMENT OrderStatus = "PENDING_PAYMENT"
	OrderStatusPAID           OrderStatus = "PAID"
	OrderStatusCANCELED       OrderStatus = "CANCELED"
)

// PaymentStatus enumerates payment lifecycle states.
type PaymentStatus string

const (
	PaymentStatusPENDING PaymentStatus = "PENDING"
	PaymentStatusPAID    PaymentStatus = "PAID"
	PaymentStatusFAILED  PaymentStatus = "FAILED"
	PaymentStatusEXPIRED PaymentStatus = "EXPIRED"
)

// User is a registered customer or admin.
type User struct {
	ID           pgtype.UUID
	Name         string
	Email        string
	PasswordHash string
	Roles        []string
	CreatedAt    pgtype.Timestamptz
	UpdatedAt    pgtype.Timestamptz
}

// RefreshToken is a hashed, revocable refresh session.
type RefreshToken struct {
	ID        pgtype.UUID
	UserID    pgtype.UUID
	TokenHash string
	ExpiresAt pgtype.Timestamptz
	RevokedAt pgtype.Timestamptz
	CreatedAt pgtype.Timestamptz
}

// Product is a catalog item (a feng-shui service or physical good).
type Product struct {
	ID          pgtype.UUID
	Slug        string
	Name        string
	Description pgtype.Text
	ImageURL    pgtype.Text
	Price       int64
	Active      bool
	CreatedAt   pgtype.Timestamptz
	UpdatedAt   pgtype.Timestamptz
}

// Cart groups items a customer intends to buy.
type Cart struct {
	ID        pgtype.UUID
	UserID    pgtype.UUID
	CreatedAt pgtype.Timestamptz
	UpdatedAt pgtype.Timestamptz
}

// CartItem is one product line inside a cart.
type CartItem struct {
	ID        pgtype.UUID
	CartID    pgtype.UUID
	ProductID pgtype.UUID
	Qty       int32
	UnitPrice int64
}

// Order is the persisted business record of a checkout.
type Order struct {
	ID            pgtype.UUID
	UserID        pgtype.UUID
	Status        OrderStatus
	Total         int64
	PaymentMethod pgtype.Text
	Notes         pgtype.Text
	CreatedAt     pgtype.Timestamptz
	UpdatedAt     pgtype.Timestamptz
}

// OrderItem is one product line inside an order. TotalPrice is always
// UnitPrice * Qty.
type OrderItem struct {
	ID         pgtype.UUID
	OrderID    pgtype.UUID
	ProductID  pgtype.UUID
	Name       string
	Qty        int32
	UnitPrice  int64
	TotalPrice int64
}

// Payment is one attempt to charge an amount through a gateway. OrderRef is
// the gateway-facing transaction reference; OrderID links back to the order
// when the payment was initiated from checkout.
type Payment struct {
	ID              pgtype.UUID
	OrderID         pgtype.UUID
	OrderRef        string
	Gateway         string
	Amount          int64
	Status          PaymentStatus
	ProviderPayload []byte
	CreatedAt       pgtype.Timestamptz
	UpdatedAt       pgtype.Timestamptz
}

// PaymentEvent is an append-only record of payment status transitions.
type PaymentEvent struct {
	ID        pgtype.UUID
	PaymentID pgtype.UUID
	Status    PaymentStatus
	Payload   []byte
	CreatedAt pgtype.Timestamptz
}

// DomainEvent is a persisted business event.
type DomainEvent struct {
	ID          pgtype.UUID
	Topic       string
	AggregateID pgtype.UUID
	Payload     []byte
	OccurredAt  pgtype.Timestamptz
}
