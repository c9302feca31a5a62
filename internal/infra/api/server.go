package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"pos-provisioning/internal/domain"
	"pos-provisioning/internal/domain/model"
	portsuc "pos-provisioning/internal/domain/ports/usecase"
	"pos-provisioning/internal/infra/logging"
	"pos-provisioning/internal/infra/redis"
	"pos-provisioning/internal/usecase"
)

const (
	checkoutLimit  = 10
	checkoutWindow = time.Minute
	maxJSONBody    = 16 << 10
)

// RateLimiter counts attempts per key inside a fixed window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// PlanCatalog is the read side of the plan catalog.
type PlanCatalog interface {
	List(ctx context.Context) ([]*model.Plan, error)
	Features(ctx context.Context, planID string) ([]model.PlanFeature, error)
}

// Deps are the collaborators the HTTP surface dispatches to.
type Deps struct {
	Checkout      usecase.CheckoutUseCase
	Payments      usecase.PaymentUseCase
	Subscriptions usecase.SubscriptionUseCase
	Entitlements  usecase.EntitlementUseCase
	Provisioner   portsuc.Provisioner
	Registration  usecase.RegistrationUseCase
	Plans         PlanCatalog
	Limiter       RateLimiter
	Guard         DeliveryGuard
	Auth          *AuthManager
	WebhookSecret string
	Timeout       time.Duration
}

// Server is the public HTTP API: checkout, gateway webhook, tenant reads and
// admin operations.
type Server struct {
	checkout      usecase.CheckoutUseCase
	payments      usecase.PaymentUseCase
	subs          usecase.SubscriptionUseCase
	ents          usecase.EntitlementUseCase
	provisioner   portsuc.Provisioner
	registration  usecase.RegistrationUseCase
	plans         PlanCatalog
	limiter       RateLimiter
	guard         DeliveryGuard
	auth          *AuthManager
	webhookSecret string
	timeout       time.Duration
	log           *zerolog.Logger
}

func NewServer(d Deps, logger *zerolog.Logger) *Server {
	if d.Timeout <= 0 {
		d.Timeout = 15 * time.Second
	}
	return &Server{
		checkout:      d.Checkout,
		payments:      d.Payments,
		subs:          d.Subscriptions,
		ents:          d.Entitlements,
		provisioner:   d.Provisioner,
		registration:  d.Registration,
		plans:         d.Plans,
		limiter:       d.Limiter,
		guard:         d.Guard,
		auth:          d.Auth,
		webhookSecret: d.WebhookSecret,
		timeout:       d.Timeout,
		log:           logger,
	}
}

// Router builds the chi router with all routes and middlewares.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(TraceID(), Recover(s.log), RequestLog(s.log), Timeout(s.timeout))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/plans", s.handlePlans)
		r.Post("/checkout", s.handleCheckout(false))
		r.Post("/payments/webhook", s.handleWebhook)

		r.Group(func(r chi.Router) {
			r.Use(RequireAdmin(s.auth))
			r.Get("/tenants/{tenantID}/subscription", s.handleSubscription)
			r.Get("/tenants/{tenantID}/entitlements/{featureCode}", s.handleEntitlement)
			r.Post("/tenants/{tenantID}/usage/{featureType}", s.handleConsume)
			r.Post("/admin/checkout", s.handleCheckout(true))
			r.Post("/admin/landing/{landingID}/provision", s.handleProvision)
			r.Post("/admin/users/{userID}/workspace", s.handleWorkspace)
		})
	})
	return r
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrPlanNotFound),
		errors.Is(err, domain.ErrNoActiveSubscription):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyExists),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrPaymentNotPaid):
		return http.StatusConflict
	case errors.Is(err, domain.ErrAmountMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrForbidden), errors.Is(err, domain.ErrFeatureDisabled):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrQuotaExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeJSON(w, status, errorBody{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return false
	}
	return true
}

type featureDTO struct {
	Code    string `json:"code"`
	Limit   *int64 `json:"limit"`
	Enabled bool   `json:"enabled"`
}

type planDTO struct {
	ID           string       `json:"id"`
	Slug         string       `json:"slug"`
	Name         string       `json:"name"`
	Price        int64        `json:"price"`
	SortOrder    int          `json:"sort_order"`
	DurationDays int          `json:"duration_days"`
	Features     []featureDTO `json:"features"`
}

func (s *Server) handlePlans(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	plans, err := s.plans.List(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	items := make([]planDTO, 0, len(plans))
	for _, p := range lo.Filter(plans, func(p *model.Plan, _ int) bool { return p.IsActive }) {
		features, err := s.plans.Features(ctx, p.ID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			writeError(w, err)
			return
		}
		items = append(items, planDTO{
			ID:           p.ID,
			Slug:         p.Slug,
			Name:         p.Name,
			Price:        p.Price,
			SortOrder:    p.SortOrder,
			DurationDays: p.DurationDays,
			Features: lo.Map(features, func(f model.PlanFeature, _ int) featureDTO {
				return featureDTO{Code: f.FeatureCode, Limit: f.LimitValue, Enabled: f.IsEnabled}
			}),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

type checkoutRequest struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	BusinessName string `json:"business_name"`
	Phone        string `json:"phone"`
	PlanID       string `json:"plan_id"`
	BillingCycle string `json:"billing_cycle"`
	TenantID     string `json:"tenant_id,omitempty"`
	UserID       string `json:"user_id,omitempty"`
}

type checkoutResponse struct {
	LandingID   string `json:"landing_id"`
	PaymentID   string `json:"payment_id"`
	Reference   string `json:"reference"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	IsUpgrade   bool   `json:"is_upgrade"`
	IsDowngrade bool   `json:"is_downgrade"`
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// handleCheckout starts a checkout. Plan changes for an existing tenant are
// only accepted on the admin route.
func (s *Server) handleCheckout(admin bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.startCheckout(w, r, admin)
	}
}

func (s *Server) startCheckout(w http.ResponseWriter, r *http.Request, admin bool) {
	ctx := r.Context()
	if s.limiter != nil && !admin {
		ok, err := s.limiter.Allow(ctx, redis.CheckoutKey(clientIP(r)), checkoutLimit, checkoutWindow)
		if err != nil {
			logging.With(ctx, s.log).Warn().Err(err).Msg("checkout rate limiter unavailable")
		} else if !ok {
			writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "too many checkouts, try again later"})
			return
		}
	}

	var req checkoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !admin && (req.TenantID != "" || req.UserID != "") {
		writeJSON(w, http.StatusForbidden, errorBody{Error: "plan changes require an admin token"})
		return
	}
	landing, payment, err := s.checkout.Start(ctx, usecase.CheckoutRequest{
		Email:        req.Email,
		Name:         req.Name,
		BusinessName: req.BusinessName,
		Phone:        req.Phone,
		PlanID:       req.PlanID,
		BillingCycle: model.BillingCycle(req.BillingCycle),
		TenantID:     req.TenantID,
		UserID:       req.UserID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, checkoutResponse{
		LandingID:   landing.ID,
		PaymentID:   payment.ID,
		Reference:   payment.GatewayReference,
		Amount:      payment.Amount,
		Currency:    payment.Currency,
		IsUpgrade:   landing.IsUpgrade,
		IsDowngrade: landing.IsDowngrade,
	})
}

type usageDTO struct {
	FeatureType      string `json:"feature_type"`
	CurrentUsage     int64  `json:"current_usage"`
	AnnualQuota      int64  `json:"annual_quota"`
	Remaining        int64  `json:"remaining"`
	SoftCapTriggered bool   `json:"soft_cap_triggered"`
}

func toUsageDTO(u *model.SubscriptionUsage, _ int) usageDTO {
	return usageDTO{
		FeatureType:      u.FeatureType,
		CurrentUsage:     u.CurrentUsage,
		AnnualQuota:      u.AnnualQuota,
		Remaining:        u.Remaining(),
		SoftCapTriggered: u.SoftCapTriggered,
	}
}

type subscriptionDTO struct {
	ID           string     `json:"id"`
	TenantID     string     `json:"tenant_id"`
	PlanID       string     `json:"plan_id"`
	PlanSlug     string     `json:"plan_slug,omitempty"`
	Status       string     `json:"status"`
	BillingCycle string     `json:"billing_cycle"`
	StartsAt     time.Time  `json:"starts_at"`
	EndsAt       time.Time  `json:"ends_at"`
	Usage        []usageDTO `json:"usage"`
}

func toSubscriptionDTO(sub *model.Subscription, plan *model.Plan, usage []*model.SubscriptionUsage) subscriptionDTO {
	out := subscriptionDTO{
		ID:           sub.ID,
		TenantID:     sub.TenantID,
		PlanID:       sub.PlanID,
		Status:       string(sub.Status),
		BillingCycle: string(sub.BillingCycle),
		StartsAt:     sub.StartsAt,
		EndsAt:       sub.EndsAt,
		Usage:        lo.Map(usage, toUsageDTO),
	}
	if plan != nil {
		out.PlanSlug = plan.Slug
	}
	return out
}

func (s *Server) handleSubscription(w http.ResponseWriter, r *http.Request) {
	ctx := logging.WithTenantID(r.Context(), chi.URLParam(r, "tenantID"))
	view, err := s.subs.Current(ctx, chi.URLParam(r, "tenantID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSubscriptionDTO(view.Subscription, view.Plan, view.Usage))
}

type entitlementDTO struct {
	FeatureCode      string `json:"feature_code"`
	Enabled          bool   `json:"enabled"`
	Limit            *int64 `json:"limit"`
	Used             int64  `json:"used"`
	Remaining        *int64 `json:"remaining"`
	SoftCapTriggered bool   `json:"soft_cap_triggered"`
}

func (s *Server) handleEntitlement(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	ctx := logging.WithTenantID(r.Context(), tenantID)
	ent, err := s.ents.Check(ctx, tenantID, chi.URLParam(r, "featureCode"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entitlementDTO{
		FeatureCode:      ent.FeatureCode,
		Enabled:          ent.Enabled,
		Limit:            ent.Limit,
		Used:             ent.Used,
		Remaining:        ent.Remaining,
		SoftCapTriggered: ent.SoftCapTriggered,
	})
}

type consumeRequest struct {
	Amount int64 `json:"amount"`
}

func (s *Server) handleConsume(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	ctx := logging.WithTenantID(r.Context(), tenantID)
	req := consumeRequest{Amount: 1}
	if r.ContentLength > 0 && !decodeJSON(w, r, &req) {
		return
	}
	u, err := s.ents.Consume(ctx, tenantID, chi.URLParam(r, "featureType"), req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUsageDTO(u, 0))
}

type provisionRequest struct {
	PaymentID string `json:"payment_id"`
}

type provisionResponse struct {
	TenantID           string          `json:"tenant_id"`
	UserID             string          `json:"user_id"`
	StoreID            string          `json:"store_id"`
	Action             string          `json:"action"`
	NewUser            bool            `json:"new_user"`
	AlreadyProvisioned bool            `json:"already_provisioned"`
	Subscription       subscriptionDTO `json:"subscription"`
}

func (s *Server) handleProvision(w http.ResponseWriter, r *http.Request) {
	landingID := chi.URLParam(r, "landingID")
	ctx := logging.WithLandingID(r.Context(), landingID)
	var req provisionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.PaymentID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "payment_id is required"})
		return
	}
	res, err := s.provisioner.ProvisionFromPaidLandingSubscription(ctx, landingID, req.PaymentID)
	if err != nil {
		writeError(w, err)
		return
	}
	out := provisionResponse{
		Action:             string(res.Action),
		NewUser:            res.NewUser,
		AlreadyProvisioned: res.AlreadyProvisioned,
	}
	if res.Tenant != nil {
		out.TenantID = res.Tenant.ID
	}
	if res.User != nil {
		out.UserID = res.User.ID
	}
	if res.Store != nil {
		out.StoreID = res.Store.ID
	}
	if res.Subscription != nil {
		out.Subscription = toSubscriptionDTO(res.Subscription, nil, res.Usage)
	}
	writeJSON(w, http.StatusOK, out)
}

type workspaceResponse struct {
	Created  bool   `json:"created"`
	TenantID string `json:"tenant_id,omitempty"`
	StoreID  string `json:"store_id,omitempty"`
}

func (s *Server) handleWorkspace(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	ctx := logging.WithUserID(r.Context(), userID)
	res, err := s.registration.ProvisionForUser(ctx, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	if res == nil {
		writeJSON(w, http.StatusOK, workspaceResponse{Created: false})
		return
	}
	writeJSON(w, http.StatusCreated, workspaceResponse{Created: true, TenantID: res.Tenant.ID, StoreID: res.Store.ID})
}
