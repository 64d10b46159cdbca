package circulation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const dateLayout = "2006-01-02"

// Handler exposes the circulation service over HTTP for the presentation
// layer. Mutation endpoints are rate limited; the limit is sized for
// circulation desks, not batch imports.
type Handler struct {
	service Service
	limiter *rate.Limiter
}

// NewHandler creates a circulation HTTP handler.
func NewHandler(service Service) *Handler {
	return &Handler{
		service: service,
		limiter: rate.NewLimiter(rate.Every(time.Second), 20),
	}
}

// Routes mounts the circulation endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/checkout", h.handleCheckout)
	r.Post("/loans/{id}/return", h.handleReturn)
	r.Get("/loans", h.handleListLoans)
	r.Get("/reports/active-loans", h.handleActiveLoansReport)
	r.Get("/items/available", h.handleAvailableItems)
	r.Get("/members", h.handleMembers)
	return r
}

func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	if !h.limiter.Allow() {
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
		return
	}

	var req struct {
		MemberID uuid.UUID `json:"member_id"`
		ItemID   uuid.UUID `json:"item_id"`
		LoanDate string    `json:"loan_date,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("decode request: %v: %w", err, ErrValidation))
		return
	}

	loanDate, err := parseDate(req.LoanDate, time.Now())
	if err != nil {
		writeError(w, err)
		return
	}

	loanID, err := h.service.Checkout(r.Context(), req.MemberID, req.ItemID, loanDate)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"loan_id": loanID.String()})
}

func (h *Handler) handleReturn(w http.ResponseWriter, r *http.Request) {
	if !h.limiter.Allow() {
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
		return
	}

	loanID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, fmt.Errorf("loan id: %v: %w", err, ErrValidation))
		return
	}

	// The body is optional; an absent return date means today.
	var req struct {
		ReturnDate string `json:"return_date,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, fmt.Errorf("decode request: %v: %w", err, ErrValidation))
		return
	}

	returnDate, err := parseDate(req.ReturnDate, time.Now())
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.service.ReturnLoan(r.Context(), loanID, returnDate); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"loan_id": loanID.String()})
}

func (h *Handler) handleListLoans(w http.ResponseWriter, r *http.Request) {
	filter := Filter{
		Status: Status(r.URL.Query().Get("status")),
		Search: r.URL.Query().Get("q"),
	}

	loans, err := h.service.ListAllLoans(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	if loans == nil {
		loans = []Loan{}
	}
	writeJSON(w, http.StatusOK, loans)
}

func (h *Handler) handleActiveLoansReport(w http.ResponseWriter, r *http.Request) {
	loans, err := h.service.ListActiveLoans(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if loans == nil {
		loans = []Loan{}
	}
	writeJSON(w, http.StatusOK, loans)
}

func (h *Handler) handleAvailableItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListAvailableItems(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) handleMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.service.ListMembers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

func parseDate(value string, fallback time.Time) (time.Time, error) {
	if value == "" {
		return fallback, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q: %w", value, ErrValidation)
	}
	return t, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusForError(err), map[string]string{
		"kind":  KindOf(err),
		"error": err.Error(),
	})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNoCopiesAvailable), errors.Is(err, ErrInvalidState):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
