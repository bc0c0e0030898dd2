/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication, decoupling the domain
  model from the external contract.

AMOUNTS:
  All amounts travel as base-10 integer strings: the 128-bit domain does
  not fit in a JSON number.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/warp/stream-engine/stream"
)

// =============================================================================
// CONFIG
// =============================================================================

// InitConfigRequest initialises the engine (exactly once).
type InitConfigRequest struct {
	Token string `json:"token"`
	Admin string `json:"admin"`
}

// ConfigDTO mirrors stream.Config.
type ConfigDTO struct {
	Token string `json:"token"`
	Admin string `json:"admin"`
}

// SetAdminRequest rotates the administrative principal.
type SetAdminRequest struct {
	NewAdmin string `json:"new_admin"`
}

// =============================================================================
// STREAMS
// =============================================================================

// CreateStreamRequest holds the parameters of one stream. The sender is the
// authenticated caller, not a body field.
type CreateStreamRequest struct {
	Recipient     string `json:"recipient"`
	DepositAmount string `json:"deposit_amount"`
	RatePerSecond string `json:"rate_per_second"`
	StartTime     uint64 `json:"start_time"`
	CliffTime     uint64 `json:"cliff_time"`
	EndTime       uint64 `json:"end_time"`
}

// CreateStreamResponse returns the allocated identifier.
type CreateStreamResponse struct {
	StreamID uint64 `json:"stream_id"`
}

// CreateStreamsRequest is an atomic batch of creations under one funding
// transfer.
type CreateStreamsRequest struct {
	Streams []CreateStreamRequest `json:"streams"`
}

// CreateStreamsResponse returns the identifiers in request order.
type CreateStreamsResponse struct {
	StreamIDs []uint64 `json:"stream_ids"`
}

// StreamDTO is the complete stored state of a stream.
type StreamDTO struct {
	ID              uint64  `json:"id"`
	Sender          string  `json:"sender"`
	Recipient       string  `json:"recipient"`
	DepositAmount   string  `json:"deposit_amount"`
	RatePerSecond   string  `json:"rate_per_second"`
	StartTime       uint64  `json:"start_time"`
	CliffTime       uint64  `json:"cliff_time"`
	EndTime         uint64  `json:"end_time"`
	WithdrawnAmount string  `json:"withdrawn_amount"`
	Status          string  `json:"status"`
	CancelledAt     *uint64 `json:"cancelled_at,omitempty"`
}

// AccruedDTO reports the accrued amount at query time.
type AccruedDTO struct {
	StreamID uint64 `json:"stream_id"`
	Accrued  string `json:"accrued"`
}

// WithdrawResponse reports the amount transferred (possibly "0").
type WithdrawResponse struct {
	StreamID uint64 `json:"stream_id"`
	Amount   string `json:"amount"`
}

// =============================================================================
// ACCOUNTS (in-process bank)
// =============================================================================

// BalanceDTO reports an account balance in the configured asset.
type BalanceDTO struct {
	Account string `json:"account"`
	Asset   string `json:"asset"`
	Balance string `json:"balance"`
}

// MintRequest credits dev funding to an account.
type MintRequest struct {
	Amount string `json:"amount"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toStreamDTO(s *stream.Stream) StreamDTO {
	return StreamDTO{
		ID:              uint64(s.ID),
		Sender:          string(s.Sender),
		Recipient:       string(s.Recipient),
		DepositAmount:   s.DepositAmount.String(),
		RatePerSecond:   s.RatePerSecond.String(),
		StartTime:       s.StartTime,
		CliffTime:       s.CliffTime,
		EndTime:         s.EndTime,
		WithdrawnAmount: s.WithdrawnAmount.String(),
		Status:          string(s.Status),
		CancelledAt:     s.CancelledAt,
	}
}

func toCreateParams(req CreateStreamRequest) (stream.CreateParams, error) {
	deposit, err := stream.ParseAmount(req.DepositAmount)
	if err != nil {
		return stream.CreateParams{}, err
	}
	rate, err := stream.ParseAmount(req.RatePerSecond)
	if err != nil {
		return stream.CreateParams{}, err
	}
	return stream.CreateParams{
		Recipient:     stream.AccountID(req.Recipient),
		DepositAmount: deposit,
		RatePerSecond: rate,
		StartTime:     req.StartTime,
		CliffTime:     req.CliffTime,
		EndTime:       req.EndTime,
	}, nil
}
