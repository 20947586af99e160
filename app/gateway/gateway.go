package gateway

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrGatewayFault is an explicit remote error, e.g. a fault code in
	// the response or a declined charge.
	ErrGatewayFault = errors.New("gateway fault")

	// ErrNoResponse covers transport failures and empty responses; for
	// billing purposes it is handled like a fault.
	ErrNoResponse = errors.New("no response from gateway")

	// ErrInvalidResponse means the response arrived but had an
	// unexpected shape, e.g. a non-numeric token id.
	ErrInvalidResponse = errors.New("invalid gateway response")
)

// CustomerProfile is the billing profile submitted when minting a token.
type CustomerProfile struct {
	Title     string
	FirstName string
	LastName  string
	Address   string
	City      string
	State     string
	PostCode  string
	Country   string
	Email     string
}

// ChargeResult is the outcome of one successful charge call.
type ChargeResult struct {
	TrxnID string
}

// TokenInfo is the gateway's view of a stored token.
type TokenInfo struct {
	TokenID     string
	CardNumber  string
	Email       string
	ExpiryMonth int
	ExpiryYear  int
}

// ExpiryDate reduces the card expiry to the first day of its month,
// which is how expiry is compared against the billing date.
func (t *TokenInfo) ExpiryDate() time.Time {
	return time.Date(t.ExpiryYear, time.Month(t.ExpiryMonth), 1, 0, 0, 0, 0, time.UTC)
}

// Client is the token gateway boundary. All calls are blocking RPCs;
// the upstream gateway has no documented SLA, so implementations carry
// a minutes-scale timeout.
type Client interface {
	ProcessorID() int32
	CreateToken(ctx context.Context, profile *CustomerProfile) (string, error)
	Charge(ctx context.Context, tokenID string, amountCents int64, invoiceRef, description string) (*ChargeResult, error)
	QueryToken(ctx context.Context, tokenID string) (*TokenInfo, error)
}
