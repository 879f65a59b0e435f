package order

import (
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

func (s PaymentStatus) String() string {
	return string(s)
}

func (s PaymentStatus) Valid() bool {
	return s == PaymentPending || s == PaymentPaid || s == PaymentFailed
}

const PaymentMethodMpesa = "mpesa"

// Customer is the buyer as they were at checkout time.
type Customer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Item is a snapshot of an artwork; it is copied, never joined back to the catalog.
type Item struct {
	UID         string `json:"uid"`
	Title       string `json:"title"`
	Artist      string `json:"artist"`
	Price       string `json:"price"`
	Src         string `json:"src"`
	TypeCode    string `json:"typeCode"`
	Materials   string `json:"materials"`
	Duration    string `json:"duration"`
	Type        string `json:"type"`
	Inspiration string `json:"inspiration"`
}

type ShippingInfo struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	City     string `json:"city"`
	Country  string `json:"country"`
}

type PaymentInfo struct {
	Method          string        `json:"method"`
	TransactionCode string        `json:"transactionCode,omitempty"`
	Status          PaymentStatus `json:"status"`
	Amount          float64       `json:"amount"`
}

type Order struct {
	OrderID      string       `json:"orderId"`
	User         Customer     `json:"user"`
	Items        []Item       `json:"items"`
	ShippingInfo ShippingInfo `json:"shippingInfo"`
	PaymentInfo  PaymentInfo  `json:"paymentInfo"`
	Status       Status       `json:"status"`
	Total        float64      `json:"total"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// CreateInput is a checkout submission. Nil pointers mean the field was absent.
type CreateInput struct {
	User            *Customer
	Items           []Item
	ShippingInfo    *ShippingInfo
	Total           *float64
	TransactionCode string
}

// UpdateInput is an admin change; at least one field must be set.
type UpdateInput struct {
	Status        *Status
	PaymentStatus *PaymentStatus
}

type ListFilter struct {
	Status string
	Page   int
	Limit  int
}

type Pagination struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	TotalOrders int  `json:"totalOrders"`
	HasNext     bool `json:"hasNext"`
	HasPrev     bool `json:"hasPrev"`
}

type Page struct {
	Orders     []Order    `json:"orders"`
	Pagination Pagination `json:"pagination"`
}

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)

// Normalize applies the paging defaults and bounds.
func (f ListFilter) Normalize() ListFilter {
	if f.Page < 1 {
		f.Page = defaultPage
	}
	if f.Limit < 1 {
		f.Limit = defaultLimit
	}
	if f.Limit > maxLimit {
		f.Limit = maxLimit
	}
	return f
}

func newPagination(page, limit, total int) Pagination {
	pages := (total + limit - 1) / limit
	return Pagination{
		CurrentPage: page,
		TotalPages:  pages,
		TotalOrders: total,
		HasNext:     page < pages,
		HasPrev:     page > 1,
	}
}
