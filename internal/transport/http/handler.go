package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"biblio/internal/model"
	"biblio/internal/service"
)

type Handler struct {
	lending service.LendingService
	catalog service.CatalogService
}

func NewHandler(lending service.LendingService, catalog service.CatalogService) *Handler {
	return &Handler{lending: lending, catalog: catalog}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)

	mux.HandleFunc("POST /loans", h.IssueLoan)
	mux.HandleFunc("POST /loans/{id}/return", h.ReturnLoan)
	mux.HandleFunc("GET /loans/open", h.ListOpen)
	mux.HandleFunc("GET /loans/overdue", h.ListOverdue)

	mux.HandleFunc("POST /books", h.CreateBook)
	mux.HandleFunc("GET /books", h.ListBooks)
	mux.HandleFunc("GET /books/{id}", h.GetBook)
	mux.HandleFunc("PUT /books/{id}", h.UpdateBook)
	mux.HandleFunc("DELETE /books/{id}", h.DeleteBook)
	mux.HandleFunc("GET /books/{id}/availability", h.Availability)

	mux.HandleFunc("POST /borrowers", h.CreateBorrower)
	mux.HandleFunc("GET /borrowers", h.ListBorrowers)
	mux.HandleFunc("GET /borrowers/{id}", h.GetBorrower)
	mux.HandleFunc("PUT /borrowers/{id}", h.UpdateBorrower)
	mux.HandleFunc("DELETE /borrowers/{id}", h.DeleteBorrower)
	mux.HandleFunc("GET /borrowers/{id}/loans", h.BorrowerLoans)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (h *Handler) IssueLoan(w http.ResponseWriter, r *http.Request) {
	var req model.IssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	res, err := h.lending.IssueLoan(r.Context(), req.BookID, req.BorrowerID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, res)
}

func (h *Handler) ReturnLoan(w http.ResponseWriter, r *http.Request) {
	loanID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	res, err := h.lending.ReturnLoan(r.Context(), loanID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, res)
}

func (h *Handler) ListOpen(w http.ResponseWriter, r *http.Request) {
	loans, err := h.lending.ListOpen(r.Context())
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, loans)
}

func (h *Handler) ListOverdue(w http.ResponseWriter, r *http.Request) {
	loans, err := h.lending.ListOverdue(r.Context(), time.Now().UTC())
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, loans)
}

func (h *Handler) BorrowerLoans(w http.ResponseWriter, r *http.Request) {
	borrowerID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	loans, err := h.lending.ListOpenByBorrower(r.Context(), borrowerID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, loans)
}

func (h *Handler) Availability(w http.ResponseWriter, r *http.Request) {
	bookID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	av, err := h.lending.Availability(r.Context(), bookID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, av)
}

func (h *Handler) CreateBook(w http.ResponseWriter, r *http.Request) {
	var in model.BookInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	book, err := h.catalog.CreateBook(r.Context(), in)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, book)
}

func (h *Handler) ListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.catalog.ListBooks(r.Context())
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, books)
}

func (h *Handler) GetBook(w http.ResponseWriter, r *http.Request) {
	bookID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	book, err := h.catalog.GetBook(r.Context(), bookID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, book)
}

func (h *Handler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	bookID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var in model.BookInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if err := h.catalog.UpdateBook(r.Context(), bookID, in); err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	bookID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.catalog.DeleteBook(r.Context(), bookID); err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) CreateBorrower(w http.ResponseWriter, r *http.Request) {
	var in model.BorrowerInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	borrower, err := h.catalog.CreateBorrower(r.Context(), in)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, borrower)
}

func (h *Handler) ListBorrowers(w http.ResponseWriter, r *http.Request) {
	borrowers, err := h.catalog.ListBorrowers(r.Context())
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, borrowers)
}

func (h *Handler) GetBorrower(w http.ResponseWriter, r *http.Request) {
	borrowerID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	borrower, err := h.catalog.GetBorrower(r.Context(), borrowerID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, borrower)
}

func (h *Handler) UpdateBorrower(w http.ResponseWriter, r *http.Request) {
	borrowerID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var in model.BorrowerInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if err := h.catalog.UpdateBorrower(r.Context(), borrowerID, in); err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) DeleteBorrower(w http.ResponseWriter, r *http.Request) {
	borrowerID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.catalog.DeleteBorrower(r.Context(), borrowerID); err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		h.respondError(w, http.StatusBadRequest, "invalid_id")
		return 0, false
	}
	return id, true
}

// respondServiceError maps the service error taxonomy onto HTTP statuses.
// The ledger itself knows nothing about these codes.
func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		h.respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrOutOfStock),
		errors.Is(err, service.ErrAlreadyReturned),
		errors.Is(err, service.ErrHasLoans):
		h.respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrStorageUnavailable):
		h.respondError(w, http.StatusServiceUnavailable, "storage unavailable")
	default:
		h.respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
