/*
handlers.go - HTTP API handlers for the streaming engine

PURPOSE:
  Exposes the engine via REST. Handles HTTP request/response, JSON
  serialization, and delegates every decision to the engine.

ENDPOINTS:
  Config:
    POST /api/config/init          Initialise (token + admin), exactly once
    GET  /api/config               Read configuration
    POST /api/config/admin         Rotate admin (admin-authorized)

  Streams:
    POST /api/streams              Create (caller is the sender)
    POST /api/streams/batch        Atomic batch creation
    GET  /api/streams/{id}         Full stored state
    GET  /api/streams/{id}/accrued Accrued amount at query time
    POST /api/streams/{id}/pause   Sender-authorized
    POST /api/streams/{id}/resume  Sender-authorized
    POST /api/streams/{id}/cancel  Sender-authorized
    POST /api/streams/{id}/withdraw Recipient-authorized

  Admin overrides (admin-authorized, otherwise identical):
    POST /api/admin/streams/{id}/pause|resume|cancel

  Accounts (in-process bank, dev funding):
    GET  /api/accounts/{id}/balance
    POST /api/accounts/{id}/mint

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, malformed input
  - 403: Caller cannot act as the required principal
  - 404: Unknown stream identifier
  - 409: Invalid state for the transition, insufficient funds
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/warp/stream-engine/bank"
	"github.com/warp/stream-engine/stream"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine *stream.Engine
	Bank   *bank.Bank
}

// NewHandler creates a new handler around an engine and its bank.
func NewHandler(engine *stream.Engine, b *bank.Bank) *Handler {
	return &Handler{Engine: engine, Bank: b}
}

// =============================================================================
// CONFIG HANDLERS
// =============================================================================

// InitConfig initialises the engine. Must succeed exactly once.
func (h *Handler) InitConfig(w http.ResponseWriter, r *http.Request) {
	var req InitConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Token == "" || req.Admin == "" {
		writeError(w, http.StatusBadRequest, "token and admin are required", nil)
		return
	}

	err := h.Engine.Init(r.Context(), stream.AssetID(req.Token), stream.AccountID(req.Admin))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ConfigDTO{Token: req.Token, Admin: req.Admin})
}

// GetConfig returns the global configuration.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.Engine.Config(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ConfigDTO{Token: string(cfg.Token), Admin: string(cfg.Admin)})
}

// SetAdmin rotates the administrative principal.
func (h *Handler) SetAdmin(w http.ResponseWriter, r *http.Request) {
	var req SetAdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.NewAdmin == "" {
		writeError(w, http.StatusBadRequest, "new_admin is required", nil)
		return
	}

	if err := h.Engine.SetAdmin(r.Context(), stream.AccountID(req.NewAdmin)); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"admin": req.NewAdmin})
}

// =============================================================================
// STREAM HANDLERS
// =============================================================================

// CreateStream creates one stream funded by the caller.
func (h *Handler) CreateStream(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFrom(r.Context())
	if !ok {
		writeError(w, http.StatusForbidden, "X-Caller header required", nil)
		return
	}

	var req CreateStreamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	params, err := toCreateParams(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}

	id, err := h.Engine.CreateStream(r.Context(), caller, params)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreateStreamResponse{StreamID: uint64(id)})
}

// CreateStreams creates a batch of streams atomically.
func (h *Handler) CreateStreams(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFrom(r.Context())
	if !ok {
		writeError(w, http.StatusForbidden, "X-Caller header required", nil)
		return
	}

	var req CreateStreamsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	batch := make([]stream.CreateParams, 0, len(req.Streams))
	for _, item := range req.Streams {
		params, err := toCreateParams(item)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid amount", err)
			return
		}
		batch = append(batch, params)
	}

	ids, err := h.Engine.CreateStreams(r.Context(), caller, batch)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	out := make([]uint64, len(ids))
	for i, id := range ids {
		out[i] = uint64(id)
	}
	writeJSON(w, http.StatusCreated, CreateStreamsResponse{StreamIDs: out})
}

// GetStream returns the complete stored state of a stream.
func (h *Handler) GetStream(w http.ResponseWriter, r *http.Request) {
	id, ok := streamIDParam(w, r)
	if !ok {
		return
	}
	s, err := h.Engine.GetStream(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStreamDTO(s))
}

// GetAccrued returns the accrued amount at query time.
func (h *Handler) GetAccrued(w http.ResponseWriter, r *http.Request) {
	id, ok := streamIDParam(w, r)
	if !ok {
		return
	}
	accrued, err := h.Engine.CalculateAccrued(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AccruedDTO{StreamID: uint64(id), Accrued: accrued.String()})
}

// PauseStream, ResumeStream, CancelStream are the sender-authorized
// transitions; the AsAdmin variants are the admin-gated twins.

func (h *Handler) PauseStream(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Engine.PauseStream)
}

func (h *Handler) ResumeStream(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Engine.ResumeStream)
}

func (h *Handler) CancelStream(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Engine.CancelStream)
}

func (h *Handler) PauseStreamAsAdmin(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Engine.PauseStreamAsAdmin)
}

func (h *Handler) ResumeStreamAsAdmin(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Engine.ResumeStreamAsAdmin)
}

func (h *Handler) CancelStreamAsAdmin(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Engine.CancelStreamAsAdmin)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id stream.StreamID) error) {
	id, ok := streamIDParam(w, r)
	if !ok {
		return
	}
	if err := op(r.Context(), id); err != nil {
		writeEngineError(w, err)
		return
	}
	s, err := h.Engine.GetStream(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStreamDTO(s))
}

// Withdraw pays the caller (the recipient) everything accrued but not yet
// withdrawn. A zero result is a success, not an error.
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	id, ok := streamIDParam(w, r)
	if !ok {
		return
	}
	amount, err := h.Engine.Withdraw(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, WithdrawResponse{StreamID: uint64(id), Amount: amount.String()})
}

// =============================================================================
// ACCOUNT HANDLERS (in-process bank)
// =============================================================================

// GetBalance returns an account balance in the configured asset.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.Engine.Config(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	account := stream.AccountID(chi.URLParam(r, "id"))
	balance := h.Bank.Balance(r.Context(), cfg.Token, account)
	writeJSON(w, http.StatusOK, BalanceDTO{
		Account: string(account),
		Asset:   string(cfg.Token),
		Balance: balance.String(),
	})
}

// Mint credits dev funding to an account.
func (h *Handler) Mint(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.Engine.Config(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}

	var req MintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	amount, err := stream.ParseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}

	account := stream.AccountID(chi.URLParam(r, "id"))
	if err := h.Bank.Mint(r.Context(), cfg.Token, account, amount); err != nil {
		writeError(w, http.StatusBadRequest, "Mint failed", err)
		return
	}
	balance := h.Bank.Balance(r.Context(), cfg.Token, account)
	writeJSON(w, http.StatusOK, BalanceDTO{
		Account: string(account),
		Asset:   string(cfg.Token),
		Balance: balance.String(),
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func streamIDParam(w http.ResponseWriter, r *http.Request) (stream.StreamID, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid stream id", err)
		return 0, false
	}
	return stream.StreamID(id), true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("writeJSON: %v", err)
	}
}

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	resp := errorResponse{Error: msg}
	if err != nil {
		resp.Detail = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeEngineError maps engine error kinds onto HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case stream.IsValidation(err):
		writeError(w, http.StatusBadRequest, "Validation failed", err)
	case stream.IsUnauthorized(err):
		writeError(w, http.StatusForbidden, "Not authorized", err)
	case stream.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Stream not found", err)
	case stream.IsInvalidState(err):
		writeError(w, http.StatusConflict, "Invalid state", err)
	case errors.Is(err, bank.ErrInsufficientFunds):
		writeError(w, http.StatusConflict, "Insufficient funds", err)
	case errors.Is(err, stream.ErrAlreadyInitialized):
		writeError(w, http.StatusConflict, "Already initialised", err)
	case errors.Is(err, stream.ErrNotInitialized):
		writeError(w, http.StatusConflict, "Not initialised", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}
