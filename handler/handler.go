package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"storefront/metrics"
	models "storefront/model"
	"storefront/service"
)

// IdempotencyHeader is the optional request header used to deduplicate purchases.
const IdempotencyHeader = "Idempotency-Key"

// ReplayedHeader marks a response that returns an earlier purchase for a reused key.
const ReplayedHeader = "Idempotent-Replayed"

// Handler is the HTTP layer that talks to service.Service
type Handler struct {
	svc     service.ServiceInterface
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewHandler returns a Handler instance
func NewHandler(s service.ServiceInterface, logger *slog.Logger, m *metrics.Metrics) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.New()
	}
	return &Handler{svc: s, log: logger, metrics: m}
}

// RegisterRoutes registers all routes on the provided router
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.Use(h.requestID, h.observe)

	r.HandleFunc("/", h.Health).Methods(http.MethodGet)
	r.Handle("/metrics", h.metrics.Handler()).Methods(http.MethodGet)

	// Products
	r.HandleFunc("/products", h.ListProducts).Methods(http.MethodGet)
	r.HandleFunc("/products", h.CreateProduct).Methods(http.MethodPost)
	r.HandleFunc("/products/low_stock", h.LowStock).Methods(http.MethodGet)
	r.HandleFunc("/products/{id:[0-9]+}", h.GetProduct).Methods(http.MethodGet)
	r.HandleFunc("/products/{id:[0-9]+}", h.UpdateProduct).Methods(http.MethodPut)
	r.HandleFunc("/products/{id:[0-9]+}/active", h.SetProductActive).Methods(http.MethodPatch)

	// Customers and cards
	r.HandleFunc("/customers", h.CreateCustomer).Methods(http.MethodPost)
	r.HandleFunc("/customers/{id:[0-9]+}/credit_cards", h.ListCreditCards).Methods(http.MethodGet)
	r.HandleFunc("/customers/{id:[0-9]+}/purchases", h.ListPurchases).Methods(http.MethodGet)
	r.HandleFunc("/credit_cards", h.CreateCreditCard).Methods(http.MethodPost)

	// Purchases
	r.HandleFunc("/purchases", h.CreatePurchase).Methods(http.MethodPost)
	r.HandleFunc("/purchases/{id:[0-9]+}", h.GetPurchase).Methods(http.MethodGet)
}

// --- request / response shapes ---
type createProductReq struct {
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	StockQty    int             `json:"stock_qty"`
}

type updateProductReq struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	StockQty    *int             `json:"stock_qty"`
}

type setActiveReq struct {
	Active *bool `json:"active"`
}

type createCustomerReq struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type createCardReq struct {
	CustomerID int64  `json:"customer_id"`
	Brand      string `json:"brand"`
	Last4      string `json:"last4"`
	ExpMonth   int    `json:"exp_month"`
	ExpYear    int    `json:"exp_year"`
	Token      string `json:"token"`
}

type createPurchaseReq struct {
	CustomerID int64                `json:"customer_id"`
	Items      []models.ItemRequest `json:"items"`
}

type productResp struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Price       string  `json:"price"`
	StockQty    int     `json:"stock_qty"`
	Active      bool    `json:"active"`
}

type purchaseResp struct {
	ID          int64     `json:"id"`
	CustomerID  int64     `json:"customer_id"`
	PurchasedAt time.Time `json:"purchased_at"`
	TotalAmount string    `json:"total_amount"`
	Status      string    `json:"status"`
}

type purchaseLineResp struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Qty         int    `json:"qty"`
	UnitPrice   string `json:"unit_price"`
}

type purchaseDetailResp struct {
	purchaseResp
	Items []purchaseLineResp `json:"items"`
}

func toProductResp(p models.Product) productResp {
	return productResp{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.StringFixed(2),
		StockQty:    p.StockQty,
		Active:      p.Active,
	}
}

func toPurchaseResp(p models.Purchase) purchaseResp {
	return purchaseResp{
		ID:          p.ID,
		CustomerID:  p.CustomerID,
		PurchasedAt: p.PurchasedAt,
		TotalAmount: p.TotalAmount.StringFixed(2),
		Status:      p.Status,
	}
}

// --- helpers ---
func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// writeServiceErr maps an error kind to a status code. Infrastructure
// failures are logged and never echoed to the client.
func (h *Handler) writeServiceErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrDuplicateRequest):
		writeErr(w, http.StatusConflict, "duplicate request")
	case errors.Is(err, models.ErrValidation), errors.Is(err, models.ErrBusinessRule):
		h.log.InfoContext(r.Context(), "request rejected", "path", r.URL.Path, "reason", err.Error())
		writeErr(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrNotFound):
		writeErr(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrConflict):
		writeErr(w, http.StatusConflict, err.Error())
	default:
		h.log.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		writeErr(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func queryDecimal(r *http.Request, key string) (*decimal.Decimal, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return nil, models.Validationf("%s must be a decimal number", key)
	}
	return &d, nil
}

// --- Handler ---

// Health handles GET /
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "message": "storefront API running"})
}

// ListProducts handles GET /products?search=&min_price=&max_price=
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	f := models.ProductFilter{Search: r.URL.Query().Get("search")}
	var err error
	if f.MinPrice, err = queryDecimal(r, "min_price"); err != nil {
		h.writeServiceErr(w, r, err)
		return
	}
	if f.MaxPrice, err = queryDecimal(r, "max_price"); err != nil {
		h.writeServiceErr(w, r, err)
		return
	}

	ps, err := h.svc.ListProducts(r.Context(), f)
	if err != nil {
		h.writeServiceErr(w, r, err)
		return
	}
	out := make([]productResp, 0, len(ps))
	for _, p := range ps {
		out = append(out, toProductResp(p))
	}
	writeJSON(w, http.StatusOK, out)
}

// CreateProduct handles POST /products
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductReq
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.svc.CreateProduct(r.Context(), models.NewProduct{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		StockQty:    req.StockQty,
	})
	if err != nil {
		h.writeServiceErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductResp(p))
}

// GetProduct handles GET /products/{id}
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, err := h.svc.GetProduct(r.Context(), id)
	if err != nil {
		h.writeServiceErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResp(p))
}

// UpdateProduct handles PUT /products/{id}; only the fields present are changed.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req updateProductReq
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.svc.UpdateProduct(r.Context(), id, models.ProductUpdate{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		StockQty:    req.StockQty,
	})
	if err != nil {
		h.writeServiceErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResp(p))
}

// SetProductActive handles PATCH /products/{id}/active
// body: { "active": false }
func (h *Handler) SetProductActive(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req setActiveReq
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Active == nil {
		writeErr(w, http.StatusBadRequest, "active is required")
		return
	}
	p, err := h.svc.SetProductActive(r.Context(), id, *req.Active)
	if err != nil {
		h.writeServiceErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResp(p))
}

// LowStock handles GET /products/low_stock?threshold=5
func (h *Handler) LowStock(w http.ResponseWriter, r *http.Request) {
	threshold := service.DefaultLowStockThreshold
	if v := r.URL.Query().Get("threshold"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeErr(w, http.StatusBadRequest, "threshold must be an integer")
			return
		}
		threshold = n
	}
	ps, err := h.svc.LowStock(r.Context(), threshold)
	if err != nil {
		h.writeServiceErr(w, r, err)
		return
	}
	if ps == nil {
		ps = []models.LowStockProduct{}
	}
	writeJSON(w, http.StatusOK, ps)
}

// CreateCustomer handles POST /customers
func (h *Handler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req createCustomerReq
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.svc.CreateCustomer(r.Context(), req.Name, req.Email)
	if err != nil {
		h.writeServiceErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// CreateCreditCard handles POST /credit_cards
func (h *Handler) CreateCreditCard(w http.ResponseWriter, r *http.Request) {
	var req createCardReq
	if !decodeJSON(w, r, &req) {
		return
	}
	id, err := h.svc.CreateCreditCard(r.Context(), models.NewCreditCard{
		CustomerID: req.CustomerID,
		Brand:      models.CardBrand(req.Brand),
		Last4:      req.Last4,
		ExpMonth:   req.ExpMonth,
		ExpYear:    req.ExpYear,
		Token:      req.Token,
	})
	if err != nil {
		h.writeServiceErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

// ListCreditCards handles GET /customers/{id}/credit_cards
func (h *Handler) ListCreditCards(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	cards, err := h.svc.ListCreditCards(r.Context(), id)
	if err != nil {
		h.writeServiceErr(w, r, err)
		return
	}
	if cards == nil {
		cards = []models.CreditCard{}
	}
	writeJSON(w, http.StatusOK, cards)
}

// CreatePurchase handles POST /purchases. A reused Idempotency-Key returns
// the original purchase with 200 instead of 201.
// body: { "customer_id": 1, "items": [{ "product_id": 2, "qty": 1 }] }
func (h *Handler) CreatePurchase(w http.ResponseWriter, r *http.Request) {
	var req createPurchaseReq
	if !decodeJSON(w, r, &req) {
		return
	}
	p, replayed, err := h.svc.CreatePurchase(r.Context(), r.Header.Get(IdempotencyHeader), req.CustomerID, req.Items)
	if err != nil {
		h.metrics.ObservePurchase(purchaseOutcome(err))
		h.writeServiceErr(w, r, err)
		return
	}
	if replayed {
		h.metrics.ObservePurchase(metrics.OutcomeReplayed)
		w.Header().Set(ReplayedHeader, "true")
		writeJSON(w, http.StatusOK, toPurchaseResp(p))
		return
	}
	h.metrics.ObservePurchase(metrics.OutcomePlaced)
	h.log.InfoContext(r.Context(), "purchase placed", "purchase_id", p.ID, "customer_id", p.CustomerID, "total", p.TotalAmount.StringFixed(2))
	writeJSON(w, http.StatusCreated, toPurchaseResp(p))
}

func purchaseOutcome(err error) string {
	switch {
	case errors.Is(err, service.ErrDuplicateRequest):
		return metrics.OutcomeDuplicate
	case errors.Is(err, models.ErrValidation), errors.Is(err, models.ErrBusinessRule):
		return metrics.OutcomeRejected
	}
	return metrics.OutcomeFailed
}

// GetPurchase handles GET /purchases/{id}
func (h *Handler) GetPurchase(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	d, err := h.svc.GetPurchase(r.Context(), id)
	if err != nil {
		h.writeServiceErr(w, r, err)
		return
	}
	out := purchaseDetailResp{purchaseResp: toPurchaseResp(d.Purchase), Items: make([]purchaseLineResp, 0, len(d.Items))}
	for _, l := range d.Items {
		out.Items = append(out.Items, purchaseLineResp{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			Qty:         l.Qty,
			UnitPrice:   l.UnitPrice.StringFixed(2),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// ListPurchases handles GET /customers/{id}/purchases
func (h *Handler) ListPurchases(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	ps, err := h.svc.ListPurchases(r.Context(), id)
	if err != nil {
		h.writeServiceErr(w, r, err)
		return
	}
	out := make([]purchaseResp, 0, len(ps))
	for _, p := range ps {
		out = append(out, toPurchaseResp(p))
	}
	writeJSON(w, http.StatusOK, out)
}
