package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/honeynil/BankClientService/internal/models"
	service "github.com/honeynil/BankClientService/internal/services"
	pkgerrors "github.com/honeynil/BankClientService/pkg/errors"
)

const idempotencyHeader = "Idempotency-Key"

type Handler struct {
	clients   service.ClientService
	transfers service.TransferService
}

func NewHandler(clients service.ClientService, transfers service.TransferService) *Handler {
	return &Handler{clients: clients, transfers: transfers}
}

type errorResponse struct {
	Error string `json:"error"`
}

type clientResponse struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Balance int64  `json:"balance"`
}

func toResponse(c models.Client) clientResponse {
	return clientResponse{ID: c.ID, Name: c.Name, Balance: c.Balance}
}

// statusFor maps the error taxonomy onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, pkgerrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, pkgerrors.ErrDuplicateName), errors.Is(err, pkgerrors.ErrRequestAlreadyProcessed):
		return http.StatusConflict
	case errors.Is(err, pkgerrors.ErrAuthFailed):
		return http.StatusUnauthorized
	case errors.Is(err, pkgerrors.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity
	case errors.Is(err, pkgerrors.ErrInvalidAmount), errors.Is(err, pkgerrors.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, pkgerrors.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		// store faults carry driver details
		msg = http.StatusText(status)
	}
	h.writeJSON(w, status, errorResponse{Error: msg})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) renderPage(w http.ResponseWriter, status int, page *template.Template, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := page.ExecuteTemplate(w, "layout", data); err != nil {
		slog.Error("failed to render page", "title", data.Title, "error", err)
	}
}

// RegisterPageRoutes mounts the HTML form pages.
func (h *Handler) RegisterPageRoutes(r *mux.Router) {
	r.HandleFunc("/registration", h.RegistrationForm).Methods(http.MethodGet)
	r.HandleFunc("/registration", h.Registration).Methods(http.MethodPost)
	r.HandleFunc("/transaction", h.TransactionForm).Methods(http.MethodGet)
	r.HandleFunc("/transaction", h.Transaction).Methods(http.MethodPost)
}

// RegisterAPIRoutes mounts the JSON API on r, typically a /api subrouter.
func (h *Handler) RegisterAPIRoutes(r *mux.Router) {
	r.HandleFunc("/clients", h.ListClients).Methods(http.MethodGet)
	r.HandleFunc("/clients", h.CreateClient).Methods(http.MethodPost)
	r.HandleFunc("/clients/{name}", h.GetClient).Methods(http.MethodGet)
	r.HandleFunc("/clients/{name}", h.DeleteClient).Methods(http.MethodDelete)
	r.HandleFunc("/clients/{name}/balance", h.GetBalance).Methods(http.MethodPost)
	r.HandleFunc("/transfers", h.Transfer).Methods(http.MethodPost)
}

func (h *Handler) RegistrationForm(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, http.StatusOK, registrationPage, pageData{Title: "Registration"})
}

func (h *Handler) Registration(w http.ResponseWriter, r *http.Request) {
	err := h.register(r)
	if err != nil {
		slog.Warn("registration rejected", "error", err)
		h.renderPage(w, statusFor(err), registrationPage, pageData{Title: "Registration", Message: msgClientNotAdded})
		return
	}
	h.renderPage(w, http.StatusOK, registrationPage, pageData{Title: "Registration", Message: msgClientAdded})
}

func (h *Handler) register(r *http.Request) error {
	if err := r.ParseForm(); err != nil {
		return fmt.Errorf("%w: %v", pkgerrors.ErrInvalidInput, err)
	}
	money, err := strconv.ParseInt(strings.TrimSpace(r.PostForm.Get("money")), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: money must be an integer", pkgerrors.ErrInvalidInput)
	}
	_, err = h.clients.Register(r.Context(), strings.TrimSpace(r.PostForm.Get("name")), r.PostForm.Get("password"), money)
	return err
}

func (h *Handler) TransactionForm(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, http.StatusOK, transactionPage, pageData{Title: "Money transaction"})
}

// Transaction collapses every failure into one rejection message; the typed
// error only goes to the log.
func (h *Handler) Transaction(w http.ResponseWriter, r *http.Request) {
	err := h.transaction(r)
	if err != nil {
		slog.Warn("transaction rejected", "error", err)
		h.renderPage(w, statusFor(err), transactionPage, pageData{Title: "Money transaction", Message: msgTransferRejected})
		return
	}
	h.renderPage(w, http.StatusOK, transactionPage, pageData{Title: "Money transaction", Message: msgTransferSuccessful})
}

func (h *Handler) transaction(r *http.Request) error {
	if err := r.ParseForm(); err != nil {
		return fmt.Errorf("%w: %v", pkgerrors.ErrInvalidInput, err)
	}
	count, err := strconv.ParseInt(strings.TrimSpace(r.PostForm.Get("count")), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: count must be an integer", pkgerrors.ErrInvalidAmount)
	}
	return h.transfers.Transfer(r.Context(),
		strings.TrimSpace(r.PostForm.Get("senderName")),
		r.PostForm.Get("senderPass"),
		strings.TrimSpace(r.PostForm.Get("nameTo")),
		count,
	)
}

func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.clients.ListClients(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := make([]clientResponse, 0, len(clients))
	for _, c := range clients {
		resp = append(resp, toResponse(c))
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Password string `json:"password"`
		Money    int64  `json:"money"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, fmt.Errorf("%w: %v", pkgerrors.ErrInvalidInput, err))
		return
	}

	client, err := h.clients.Register(r.Context(), req.Name, req.Password, req.Money)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, toResponse(client))
}

func (h *Handler) GetClient(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	client, found, err := h.clients.GetByName(r.Context(), name)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !found {
		h.writeError(w, pkgerrors.ErrNotFound)
		return
	}
	h.writeJSON(w, http.StatusOK, toResponse(client))
}

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, fmt.Errorf("%w: %v", pkgerrors.ErrInvalidInput, err))
		return
	}

	balance, err := h.clients.GetBalance(r.Context(), name, req.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"name": name, "balance": balance})
}

func (h *Handler) DeleteClient(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if err := h.clients.DeleteClient(r.Context(), name); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SenderName     string `json:"sender_name"`
		SenderPassword string `json:"sender_password"`
		RecipientName  string `json:"recipient_name"`
		Amount         int64  `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, fmt.Errorf("%w: %v", pkgerrors.ErrInvalidInput, err))
		return
	}

	requestID := r.Header.Get(idempotencyHeader)
	err := h.transfers.TransferOnce(r.Context(), requestID, req.SenderName, req.SenderPassword, req.RecipientName, req.Amount)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "completed"})
}
