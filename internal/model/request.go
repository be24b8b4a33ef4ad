package model

import "time"

// Request types.
const (
	RequestTravel   = "travel"
	RequestPurchase = "purchase"
)

// Sub-request kinds.
const (
	SubRequestInitial       = "initial"
	SubRequestComplementary = "complementary"
)

// TravelAdvance is the only travel record type created by the request workflow.
const TravelAdvance = "advance"

// Issuer is the party on whose behalf spending is requested. NameRef is an
// opaque identifier supplied by the identity layer.
type Issuer struct {
	ID         int64     `json:"id"`
	NameRef    string    `json:"name_ref"`
	Department string    `json:"department"`
	Status     string    `json:"status"`
	CreatedBy  int64     `json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
}

// Request is the parent of one initial and any number of complementary
// sub-requests.
type Request struct {
	ID       int64  `json:"id"`
	IssuerID int64  `json:"issuer_id"`
	Type     string `json:"type"`
	Status   string `json:"status"`
}

// SubRequest is one commitment round under a request.
type SubRequest struct {
	ID        int64     `json:"id"`
	RequestID int64     `json:"request_id"`
	Kind      string    `json:"kind"`
	Object    string    `json:"object"`
	Status    string    `json:"status"`
	CreatedBy int64     `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// ExpenseLine is an immutable commitment of Amount against a budget line.
type ExpenseLine struct {
	ID           int64 `json:"id"`
	BudgetLineID int64 `json:"budget_line_id"`
	SubRequestID int64 `json:"sub_request_id"`
	Amount       int64 `json:"amount"`
}

// Travel is the type-specific advance record attached to a travel request.
type Travel struct {
	ID           int64  `json:"id"`
	SubRequestID int64  `json:"sub_request_id"`
	TravelType   string `json:"travel_type"`
}

// ValidRequestType reports whether t is a known request type.
func ValidRequestType(t string) bool {
	return t == RequestTravel || t == RequestPurchase
}
