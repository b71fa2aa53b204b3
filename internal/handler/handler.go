package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/DebiyaQugan28/vallblox-gaming-store/internal/infrastructure/auth"
	"github.com/DebiyaQugan28/vallblox-gaming-store/internal/models"
	service "github.com/DebiyaQugan28/vallblox-gaming-store/internal/services"
	pkgerrors "github.com/DebiyaQugan28/vallblox-gaming-store/pkg/errors"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

const maxBodyBytes = 1 << 20

// NotificationProcessor verifies and applies a raw gateway notification body.
type NotificationProcessor interface {
	Process(ctx context.Context, body []byte) error
}

type Pinger interface {
	PingContext(ctx context.Context) error
}

type Handler struct {
	accounts service.AccountService
	catalog  service.CatalogService
	orders   service.OrderService
	webhook  NotificationProcessor
	db       Pinger
}

func NewHandler(
	accounts service.AccountService,
	catalog service.CatalogService,
	orders service.OrderService,
	webhook NotificationProcessor,
	db Pinger,
) *Handler {
	return &Handler{
		accounts: accounts,
		catalog:  catalog,
		orders:   orders,
		webhook:  webhook,
		db:       db,
	}
}

// RegisterPublicRoutes mounts the unauthenticated endpoints. throttle wraps
// the credential endpoints.
func (h *Handler) RegisterPublicRoutes(r *mux.Router, throttle func(http.Handler) http.Handler) {
	r.Handle("/accounts", throttle(http.HandlerFunc(h.Register))).Methods("POST")
	r.Handle("/sessions", throttle(http.HandlerFunc(h.Login))).Methods("POST")
	r.Handle("/password-resets", throttle(http.HandlerFunc(h.RequestPasswordReset))).Methods("POST")
	r.Handle("/password-resets/confirm", throttle(http.HandlerFunc(h.ConfirmPasswordReset))).Methods("POST")
	r.HandleFunc("/products", h.ListProducts).Methods("GET")
	r.HandleFunc("/orders/{ref}", h.GetOrder).Methods("GET")
	r.HandleFunc("/gateway-webhook", h.GatewayWebhook).Methods("POST")
	r.HandleFunc("/healthz", h.Health).Methods("GET")
}

func (h *Handler) RegisterProtectedRoutes(r *mux.Router, requireAuth func(http.Handler) http.Handler) {
	r.Handle("/sessions", requireAuth(http.HandlerFunc(h.Logout))).Methods("DELETE")
	r.Handle("/orders", requireAuth(http.HandlerFunc(h.CreateOrder))).Methods("POST")
	r.Handle("/accounts/me/orders", requireAuth(http.HandlerFunc(h.ListMyOrders))).Methods("GET")
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FullName    string `json:"fullName"`
		Email       string `json:"email"`
		PhoneNumber string `json:"phoneNumber"`
		Password    string `json:"password"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	account, err := h.accounts.Register(r.Context(), service.RegisterInput{
		FullName:    req.FullName,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		Password:    req.Password,
	})
	if err != nil {
		h.writeServiceError(w, r, "Register", err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Registration successful",
		"userId":  account.ID,
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	account, token, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeServiceError(w, r, "Login", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Login successful",
		"user": map[string]interface{}{
			"id":          account.ID,
			"fullName":    account.FullName,
			"email":       account.Email,
			"phoneNumber": account.PhoneNumber,
			"token":       token,
		},
	})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	accountID, ok := auth.AccountIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Access token required")
		return
	}
	if err := h.accounts.Logout(r.Context(), accountID); err != nil {
		h.writeServiceError(w, r, "Logout", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (h *Handler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	token, err := h.accounts.IssueResetToken(r.Context(), req.Email)
	if err != nil {
		h.writeServiceError(w, r, "RequestPasswordReset", err)
		return
	}

	// There is no mail delivery; the caller receives the token directly.
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"message":    "Reset token issued",
		"resetToken": token,
	})
}

func (h *Handler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.accounts.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		h.writeServiceError(w, r, "ConfirmPasswordReset", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Password updated",
	})
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "limit must be an integer")
		return
	}

	products, err := h.catalog.ListProducts(r.Context(), r.URL.Query().Get("category"), limit)
	if err != nil {
		h.writeServiceError(w, r, "ListProducts", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"products": products,
	})
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	accountID, ok := auth.AccountIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Access token required")
		return
	}

	var req struct {
		ProductID       int64           `json:"product_id"`
		ProductName     string          `json:"product_name"`
		Price           decimal.Decimal `json:"price"`
		CustomerDetails json.RawMessage `json:"customer_details"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	checkout, err := h.orders.CreateOrder(r.Context(), service.CreateOrderInput{
		AccountID:       accountID,
		ProductID:       req.ProductID,
		ProductName:     req.ProductName,
		Amount:          req.Price,
		CustomerDetails: req.CustomerDetails,
	})
	if err != nil {
		h.writeServiceError(w, r, "CreateOrder", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"snap_token":   checkout.SessionToken,
		"redirect_url": checkout.RedirectURL,
		"order_id":     checkout.OrderID,
	})
}

type orderStatusView struct {
	ID            string             `json:"id"`
	Status        models.OrderStatus `json:"status"`
	Product       string             `json:"product"`
	Amount        decimal.Decimal    `json:"amount"`
	Date          time.Time          `json:"date"`
	PaymentMethod string             `json:"paymentMethod"`
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.GetOrder(r.Context(), mux.Vars(r)["ref"])
	if err != nil {
		h.writeServiceError(w, r, "GetOrder", err)
		return
	}

	paymentMethod := order.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = models.PaymentMethodMidtrans
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"transaction": orderStatusView{
			ID:            order.ID,
			Status:        order.Status,
			Product:       order.ProductName,
			Amount:        order.Amount,
			Date:          order.CreatedAt,
			PaymentMethod: paymentMethod,
		},
	})
}

func (h *Handler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	accountID, ok := auth.AccountIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Access token required")
		return
	}

	page, err := queryInt(r, "page", 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, "page must be an integer")
		return
	}
	limit, err := queryInt(r, "limit", service.DefaultPageSize)
	if err != nil {
		writeError(w, http.StatusBadRequest, "limit must be an integer")
		return
	}

	result, err := h.orders.ListOrdersForAccount(r.Context(), accountID, page, limit)
	if err != nil {
		h.writeServiceError(w, r, "ListMyOrders", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"transactions": result.Orders,
		"pagination": map[string]int{
			"page":       result.Page,
			"limit":      result.Limit,
			"total":      result.Total,
			"totalPages": result.TotalPages,
		},
	})
}

// GatewayWebhook acknowledges every verified notification, including ones
// whose processing failed, so the gateway does not retry them forever.
func (h *Handler) GatewayWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid notification body")
		return
	}

	err = h.webhook.Process(r.Context(), body)
	switch {
	case errors.Is(err, pkgerrors.ErrMalformedNotification):
		writeError(w, http.StatusBadRequest, "Invalid notification")
		return
	case errors.Is(err, pkgerrors.ErrInvalidSignature):
		writeError(w, http.StatusForbidden, "Invalid signature")
		return
	case err != nil:
		slog.Error("notification processing failed", "method", "GatewayWebhook", "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.db.PingContext(ctx); err != nil {
		slog.Error("health check failed", "method", "Health", "error", err)
		writeError(w, http.StatusServiceUnavailable, "Database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

var errorStatuses = []struct {
	target error
	status int
}{
	{pkgerrors.ErrInvalidInput, http.StatusBadRequest},
	{pkgerrors.ErrEmailExists, http.StatusBadRequest},
	{pkgerrors.ErrInvalidCredentials, http.StatusUnauthorized},
	{pkgerrors.ErrUnauthorized, http.StatusUnauthorized},
	{pkgerrors.ErrResetTokenInvalid, http.StatusUnauthorized},
	{pkgerrors.ErrAccountNotFound, http.StatusNotFound},
	{pkgerrors.ErrProductNotFound, http.StatusNotFound},
	{pkgerrors.ErrOrderNotFound, http.StatusNotFound},
}

// writeServiceError maps a service error onto a status. Only invalid input
// echoes its detail; every other class answers with its sentinel text, and
// server-side failures with a generic message.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, method string, err error) {
	for _, e := range errorStatuses {
		if errors.Is(err, e.target) {
			message := e.target.Error()
			if e.target == pkgerrors.ErrInvalidInput {
				message = err.Error()
			}
			writeError(w, e.status, message)
			return
		}
	}

	slog.Error("request failed", "method", method, "path", r.URL.Path, "error", err)
	if errors.Is(err, pkgerrors.ErrGateway) {
		writeError(w, http.StatusInternalServerError, "Payment gateway unavailable")
		return
	}
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func queryInt(r *http.Request, key string, defaultVal int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"message": message,
	})
}
