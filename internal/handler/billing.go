// Package handler contains the HTTP handlers for the MindGrove API.
//
// This file implements the billing endpoints.
//
// Routes:
//   - GET  /api/billing/plans    -> Plans    (public)
//   - POST /api/billing/checkout -> Checkout (requires auth)
//   - POST /api/billing/portal   -> Portal   (requires auth)
package handler

import (
	"log/slog"
	"net/http"

	"github.com/mindgrove-app/mindgrove/internal/auth"
	"github.com/mindgrove-app/mindgrove/internal/billing"
	"github.com/mindgrove-app/mindgrove/internal/domain"
	"github.com/mindgrove-app/mindgrove/internal/service"
)

// BillingHandler handles Stripe checkout and customer portal sessions.
type BillingHandler struct {
	billing     billing.Service
	userService service.UserService
	logger      *slog.Logger
	baseURL     string // Public base URL for Stripe redirect targets
}

// NewBillingHandler creates a new BillingHandler. billingService may be nil
// when Stripe is not configured; billing endpoints then return EINVALID.
func NewBillingHandler(billingService billing.Service, userService service.UserService, logger *slog.Logger, baseURL string) *BillingHandler {
	return &BillingHandler{
		billing:     billingService,
		userService: userService,
		logger:      logger,
		baseURL:     baseURL,
	}
}

// =============================================================================
// GET /api/billing/plans
// =============================================================================

type planResponse struct {
	ID                   domain.Tier `json:"id"`
	Name                 string      `json:"name"`
	PriceCents           int64       `json:"price_cents"`
	Currency             string      `json:"currency"`
	DurationDays         int         `json:"duration_days"`
	MaxDocumentsPerMonth *int64      `json:"max_documents_per_month"`
	MaxAIQueriesPerDay   *int64      `json:"max_ai_queries_per_day"`
	Features             []string    `json:"features"`
}

// Plans returns the tier catalog. Unlimited quotas are reported as null.
func (h *BillingHandler) Plans(w http.ResponseWriter, r *http.Request) {
	out := make([]planResponse, 0, len(domain.TierDefinitions))
	for _, def := range domain.TierDefinitions {
		features := make([]string, 0, len(def.Features))
		for _, f := range def.Features {
			features = append(features, string(f))
		}
		plan := planResponse{
			ID:           def.ID,
			Name:         def.Name,
			PriceCents:   def.PriceCents,
			Currency:     def.Currency,
			DurationDays: def.DurationDays,
			Features:     features,
		}
		if def.MaxDocumentsPerMonth < domain.QuotaUnlimited {
			limit := def.MaxDocumentsPerMonth
			plan.MaxDocumentsPerMonth = &limit
		}
		if def.MaxAIQueriesPerDay < domain.QuotaUnlimited {
			limit := def.MaxAIQueriesPerDay
			plan.MaxAIQueriesPerDay = &limit
		}
		out = append(out, plan)
	}
	respondJSON(w, http.StatusOK, map[string][]planResponse{"plans": out})
}

// =============================================================================
// POST /api/billing/checkout
// =============================================================================

type checkoutRequest struct {
	Tier domain.Tier `json:"tier"`
}

// Checkout creates a Stripe Checkout session for a paid tier and returns
// the URL the client should redirect to. A Stripe customer is created for
// the user on first use.
func (h *BillingHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	const op = "billing.checkout"

	if h.billing == nil {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "Billing is not configured."))
		return
	}

	user := auth.GetUser(r.Context())

	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	priceID := h.billing.PriceIDForTier(string(req.Tier))
	if priceID == "" {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "Unknown plan. Expected weekly or monthly."))
		return
	}

	customerID, err := h.ensureCustomer(r, user)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	url, err := h.billing.CreateCheckoutSession(
		customerID,
		priceID,
		h.baseURL+"/billing/success?session_id={CHECKOUT_SESSION_ID}",
		h.baseURL+"/billing/cancelled",
	)
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Internal(err, op, "failed to create checkout session"))
		return
	}

	h.logger.Info("checkout session created", "user_id", user.ID, "tier", req.Tier)
	respondJSON(w, http.StatusOK, map[string]string{"url": url})
}

// ensureCustomer returns the user's Stripe customer ID, creating the
// customer on first use.
func (h *BillingHandler) ensureCustomer(r *http.Request, user *domain.User) (string, error) {
	const op = "billing.ensure_customer"

	if user.StripeCustomerID != "" {
		return user.StripeCustomerID, nil
	}

	customerID, err := h.billing.CreateCustomer(user.Email, user.DisplayName())
	if err != nil {
		return "", domain.Internal(err, op, "failed to create billing customer")
	}

	if err := h.userService.UpdateStripeCustomer(r.Context(), user.ID, customerID); err != nil {
		return "", err
	}
	return customerID, nil
}

// =============================================================================
// POST /api/billing/portal
// =============================================================================

// Portal creates a Stripe Customer Portal session for managing an existing
// subscription.
func (h *BillingHandler) Portal(w http.ResponseWriter, r *http.Request) {
	const op = "billing.portal"

	if h.billing == nil {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "Billing is not configured."))
		return
	}

	user := auth.GetUser(r.Context())
	if user.StripeCustomerID == "" {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "No billing account yet. Subscribe to a plan first."))
		return
	}

	url, err := h.billing.CreatePortalSession(user.StripeCustomerID, h.baseURL+"/account")
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Internal(err, op, "failed to create portal session"))
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"url": url})
}
