// Package handler contains the HTTP handlers for the MindGrove API.
//
// This file implements the Stripe webhook handler, the external driver of
// the subscription lifecycle.
//
// Route:
//   - POST /webhooks/stripe -> HandleStripeWebhook
//
// This route is PUBLIC (no auth middleware) because Stripe calls it
// directly. Authentication is via the Stripe webhook signature.
package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mindgrove-app/mindgrove/internal/billing"
	"github.com/mindgrove-app/mindgrove/internal/domain"
	"github.com/mindgrove-app/mindgrove/internal/notify"
	"github.com/mindgrove-app/mindgrove/internal/service"
	"github.com/stripe/stripe-go/v79"
)

// maxWebhookBodyBytes caps Stripe webhook payloads.
const maxWebhookBodyBytes = 65536

// WebhookHandler handles incoming webhook events from Stripe and maps them
// onto subscription lifecycle transitions.
type WebhookHandler struct {
	billing       billing.Service
	userService   service.UserService
	subscriptions service.SubscriptionService
	sink          notify.Sink
	logger        *slog.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
// billingService may be nil when Stripe is not configured.
func NewWebhookHandler(
	billingService billing.Service,
	userService service.UserService,
	subscriptions service.SubscriptionService,
	sink notify.Sink,
	logger *slog.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		billing:       billingService,
		userService:   userService,
		subscriptions: subscriptions,
		sink:          sink,
		logger:        logger,
	}
}

// RegisterRoutes registers webhook routes on the provided mux.
// These routes are PUBLIC — no auth middleware.
func (h *WebhookHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /webhooks/stripe", h.HandleStripeWebhook)
}

// HandleStripeWebhook processes incoming Stripe webhook events.
//
// Responses are 200 for anything processed or deliberately ignored and 400
// only for unverifiable payloads, so Stripe retries exactly the deliveries
// that might succeed later.
func (h *WebhookHandler) HandleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	if h.billing == nil {
		h.logger.Warn("stripe webhook received but billing is not configured")
		w.WriteHeader(http.StatusOK)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes))
	if err != nil {
		h.logger.Error("failed to read webhook body", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	signature := r.Header.Get("Stripe-Signature")
	event, err := h.billing.VerifyWebhookSignature(body, signature)
	if err != nil {
		h.logger.Warn("webhook signature verification failed", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	h.logger.Info("stripe webhook received", "type", event.Type, "id", event.ID)

	switch event.Type {
	case "checkout.session.completed":
		h.handleCheckoutCompleted(r.Context(), event)
	case "invoice.payment_succeeded":
		h.handlePaymentSucceeded(r.Context(), event)
	case "invoice.payment_failed":
		h.handlePaymentFailed(r.Context(), event)
	case "customer.subscription.deleted":
		h.handleSubscriptionDeleted(r.Context(), event)
	default:
		h.logger.Debug("unhandled webhook event type", "type", event.Type)
	}

	w.WriteHeader(http.StatusOK)
}

// handleCheckoutCompleted upgrades the user onto the purchased tier with
// expiry = now + the tier's period length.
func (h *WebhookHandler) handleCheckoutCompleted(ctx context.Context, event stripe.Event) {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		h.logger.Error("failed to parse checkout session", "error", err)
		return
	}

	if session.Customer == nil || session.Subscription == nil {
		h.logger.Warn("checkout session missing customer or subscription", "session_id", session.ID)
		return
	}

	user, err := h.userService.GetByStripeCustomerID(ctx, session.Customer.ID)
	if err != nil {
		h.logger.Error("user not found for checkout",
			"customer_id", session.Customer.ID, "error", err)
		return
	}

	tier, ok := h.subscriptionTier(session.Subscription.ID)
	if !ok {
		return
	}

	expiry := time.Now().Add(domain.GetTierDefinition(tier).Duration())
	if err := h.subscriptions.Upgrade(ctx, user.ID, tier, expiry, session.Subscription.ID); err != nil {
		h.logger.Error("failed to apply upgrade from checkout",
			"user_id", user.ID, "tier", tier, "error", err)
	}
}

// handlePaymentSucceeded extends the subscription by one period on renewal
// invoices. The first invoice of a subscription is skipped; checkout
// completion already applied the upgrade.
func (h *WebhookHandler) handlePaymentSucceeded(ctx context.Context, event stripe.Event) {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		h.logger.Error("failed to parse invoice", "error", err)
		return
	}

	if invoice.Customer == nil || invoice.Subscription == nil {
		return
	}
	if invoice.BillingReason == stripe.InvoiceBillingReasonSubscriptionCreate {
		return
	}

	user, err := h.userService.GetByStripeCustomerID(ctx, invoice.Customer.ID)
	if err != nil {
		h.logger.Error("user not found for renewal",
			"customer_id", invoice.Customer.ID, "error", err)
		return
	}

	tier, ok := h.subscriptionTier(invoice.Subscription.ID)
	if !ok {
		return
	}

	newExpiry := time.Now().Add(domain.GetTierDefinition(tier).Duration())
	if err := h.subscriptions.Renew(ctx, user.ID, tier, newExpiry, invoice.Subscription.ID); err != nil {
		h.logger.Error("failed to apply renewal",
			"user_id", user.ID, "tier", tier, "error", err)
	}
}

// handlePaymentFailed warns the user. The tier is left alone: access runs
// until the already-paid expiry, and the expiry machinery downgrades after
// that if the payment never recovers.
func (h *WebhookHandler) handlePaymentFailed(ctx context.Context, event stripe.Event) {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		h.logger.Error("failed to parse invoice", "error", err)
		return
	}

	if invoice.Customer == nil {
		return
	}

	user, err := h.userService.GetByStripeCustomerID(ctx, invoice.Customer.ID)
	if err != nil {
		h.logger.Debug("user not found for failed payment", "customer_id", invoice.Customer.ID)
		return
	}

	h.logger.Warn("payment failed", "user_id", user.ID, "customer_id", invoice.Customer.ID)
	h.sink.Notify(ctx, user.ID,
		"Your subscription payment failed. Please update your payment method to keep your plan.",
		domain.SeverityWarning,
	)
}

// handleSubscriptionDeleted downgrades the user to the free tier.
func (h *WebhookHandler) handleSubscriptionDeleted(ctx context.Context, event stripe.Event) {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		h.logger.Error("failed to parse subscription deleted event", "error", err)
		return
	}

	if sub.Customer == nil {
		h.logger.Warn("subscription deleted event missing customer", "subscription_id", sub.ID)
		return
	}

	user, err := h.userService.GetByStripeCustomerID(ctx, sub.Customer.ID)
	if err != nil {
		h.logger.Warn("user not found for subscription deletion", "customer_id", sub.Customer.ID)
		return
	}

	if err := h.subscriptions.DowngradeExpired(ctx, user.ID); err != nil {
		h.logger.Error("failed to downgrade after cancellation",
			"user_id", user.ID, "error", err)
		return
	}

	h.logger.Info("subscription cancelled", "user_id", user.ID, "subscription_id", sub.ID)
}

// subscriptionTier resolves a Stripe subscription's price to a tier. Looked
// up fresh from Stripe so the mapping works on thin webhook payloads too.
func (h *WebhookHandler) subscriptionTier(subscriptionID string) (domain.Tier, bool) {
	sub, err := h.billing.GetSubscription(subscriptionID)
	if err != nil {
		h.logger.Error("failed to fetch subscription", "subscription_id", subscriptionID, "error", err)
		return "", false
	}

	if sub.Items == nil || len(sub.Items.Data) == 0 || sub.Items.Data[0].Price == nil {
		h.logger.Error("subscription has no price", "subscription_id", subscriptionID)
		return "", false
	}

	tier := domain.Tier(h.billing.TierForPriceID(sub.Items.Data[0].Price.ID))
	if tier != domain.TierWeekly && tier != domain.TierMonthly {
		h.logger.Error("subscription price maps to no paid tier",
			"subscription_id", subscriptionID, "price_id", sub.Items.Data[0].Price.ID)
		return "", false
	}
	return tier, true
}
