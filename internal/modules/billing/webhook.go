package billing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/cortex-backend/internal/domain"
	"github.com/yungbote/cortex-backend/internal/observability"
	"github.com/yungbote/cortex-backend/internal/pkg/dbctx"
	"github.com/yungbote/cortex-backend/internal/pkg/pointers"
	"github.com/yungbote/cortex-backend/internal/platform/apierr"
)

const (
	EventActive    = "subscription.active"
	EventCancelled = "subscription.cancelled"
	EventOnHold    = "subscription.on_hold"
	EventRenewed   = "subscription.renewed"
	EventExpired   = "subscription.expired"

	ResultProcessed = "processed"
	ResultIgnored   = "ignored"
)

var (
	errMissingHeaders   = errors.New("missing webhook headers")
	errBadTimestamp     = errors.New("invalid webhook timestamp")
	errStaleTimestamp   = errors.New("webhook timestamp outside tolerance")
	errSignatureInvalid = errors.New("no matching signature")
)

type WebhookHeaders struct {
	ID        string
	Timestamp string
	Signature string
}

type WebhookResult struct {
	Status string `json:"status"`
	Event  string `json:"event,omitempty"`
	Reason string `json:"reason,omitempty"`
}

type webhookEnvelope struct {
	Type      string          `json:"type"`
	EventType string          `json:"event_type"`
	Data      json.RawMessage `json:"data"`
}

type subscriptionEvent struct {
	SubscriptionID string `json:"subscription_id"`
	Customer       struct {
		CustomerID string `json:"customer_id"`
		Email      string `json:"email"`
	} `json:"customer"`
	Metadata           map[string]any `json:"metadata"`
	CurrentPeriodStart string         `json:"current_period_start"`
	CurrentPeriodEnd   string         `json:"current_period_end"`
}

// SignWebhook returns the base64 HMAC-SHA256 of "id.timestamp.body" under
// secret, in the form carried after "v1," in the webhook-signature header.
func SignWebhook(secret, id, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, secretKey(secret))
	mac.Write([]byte(id))
	mac.Write([]byte{'.'})
	mac.Write([]byte(timestamp))
	mac.Write([]byte{'.'})
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func secretKey(secret string) []byte {
	secret = strings.TrimPrefix(secret, "whsec_")
	if key, err := base64.StdEncoding.DecodeString(secret); err == nil {
		return key
	}
	return []byte(secret)
}

// VerifyWebhook checks a Standard Webhooks signature. The header may carry
// several space-separated "v1,<sig>" candidates; any match is accepted.
func VerifyWebhook(secret string, h WebhookHeaders, body []byte, now time.Time, tolerance time.Duration) error {
	if h.ID == "" || h.Timestamp == "" || h.Signature == "" {
		return errMissingHeaders
	}
	ts, err := strconv.ParseInt(strings.TrimSpace(h.Timestamp), 10, 64)
	if err != nil {
		return errBadTimestamp
	}
	if d := now.Sub(time.Unix(ts, 0)); d > tolerance || d < -tolerance {
		return errStaleTimestamp
	}
	expected := []byte(SignWebhook(secret, h.ID, h.Timestamp, body))
	for _, part := range strings.Fields(h.Signature) {
		sig := part
		if version, rest, ok := strings.Cut(part, ","); ok {
			if version != "v1" {
				continue
			}
			sig = rest
		}
		if subtle.ConstantTimeCompare([]byte(sig), expected) == 1 {
			return nil
		}
	}
	return errSignatureInvalid
}

// HandleWebhook verifies and applies one billing event. Replays are safe:
// every handler writes absolute state keyed by the provider's ids.
func (u Usecases) HandleWebhook(ctx context.Context, h WebhookHeaders, body []byte) (*WebhookResult, error) {
	if u.deps.WebhookSecret == "" {
		u.deps.Log.Warn("webhook secret not configured, skipping signature verification")
	} else if err := VerifyWebhook(u.deps.WebhookSecret, h, body, u.deps.Now(), u.deps.WebhookTolerance); err != nil {
		observability.WebhookEvents.WithLabelValues("unknown", "rejected").Inc()
		u.deps.Log.Security("webhook signature rejected", "webhook_id", h.ID, "reason", err.Error())
		return nil, apierr.New(http.StatusUnauthorized, "invalid_signature", err)
	}

	var env webhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, apierr.New(http.StatusBadRequest, "invalid_payload", fmt.Errorf("decode webhook: %w", err))
	}
	event := env.Type
	if event == "" {
		event = env.EventType
	}
	if event == "" {
		observability.WebhookEvents.WithLabelValues("unknown", ResultIgnored).Inc()
		return &WebhookResult{Status: ResultIgnored, Reason: "no event type"}, nil
	}

	handler, ok := u.handlers()[event]
	if !ok {
		u.deps.Log.Info("unhandled webhook event", "event", event)
		observability.WebhookEvents.WithLabelValues(event, ResultIgnored).Inc()
		return &WebhookResult{Status: ResultIgnored, Event: event}, nil
	}

	data := []byte(env.Data)
	if len(data) == 0 || string(data) == "null" {
		data = body
	}
	var ev subscriptionEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, apierr.New(http.StatusBadRequest, "invalid_payload", fmt.Errorf("decode webhook data: %w", err))
	}

	var reason string
	err := u.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var herr error
		reason, herr = handler(dbctx.Context{Ctx: ctx, Tx: tx}, &ev)
		return herr
	})
	if err != nil {
		observability.WebhookEvents.WithLabelValues(event, "failed").Inc()
		u.deps.Log.Error("webhook handling failed", "event", event, "subscription_id", ev.SubscriptionID, "error", err)
		return nil, apierr.New(http.StatusInternalServerError, "webhook_failed", err)
	}
	if reason != "" {
		u.deps.Log.Warn("webhook ignored", "event", event, "subscription_id", ev.SubscriptionID, "reason", reason)
		observability.WebhookEvents.WithLabelValues(event, ResultIgnored).Inc()
		return &WebhookResult{Status: ResultIgnored, Event: event, Reason: reason}, nil
	}
	u.deps.Log.Info("webhook processed", "event", event, "subscription_id", ev.SubscriptionID)
	observability.WebhookEvents.WithLabelValues(event, ResultProcessed).Inc()
	return &WebhookResult{Status: ResultProcessed, Event: event}, nil
}

// eventHandler returns a non-empty reason when the event was ignored.
type eventHandler func(dbc dbctx.Context, ev *subscriptionEvent) (string, error)

func (u Usecases) handlers() map[string]eventHandler {
	return map[string]eventHandler{
		EventActive:    u.onActive,
		EventCancelled: u.statusOnly(domain.StatusCancelled),
		EventOnHold:    u.statusOnly(domain.StatusOnHold),
		EventRenewed:   u.onRenewed,
		EventExpired:   u.onExpired,
	}
}

func (u Usecases) onActive(dbc dbctx.Context, ev *subscriptionEvent) (string, error) {
	if ev.SubscriptionID == "" {
		return "missing subscription_id", nil
	}
	userID, err := u.resolveUser(dbc, ev)
	if err != nil {
		return "", err
	}
	if userID == uuid.Nil {
		return "user not found", nil
	}
	sub := &domain.Subscription{
		UserID:             userID,
		Plan:               domain.PlanPro,
		Status:             domain.StatusActive,
		SubscriptionID:     &ev.SubscriptionID,
		CustomerID:         pointers.NonEmpty(ev.Customer.CustomerID),
		CurrentPeriodStart: parsePeriod(ev.CurrentPeriodStart),
		CurrentPeriodEnd:   parsePeriod(ev.CurrentPeriodEnd),
	}
	if err := u.deps.Subscriptions.Upsert(dbc, sub); err != nil {
		return "", fmt.Errorf("upsert subscription: %w", err)
	}
	return "", u.deps.Users.UpdatePlan(dbc, userID, domain.PlanPro)
}

// resolveUser prefers metadata.user_id and falls back to the customer email.
// uuid.Nil means no user matched.
func (u Usecases) resolveUser(dbc dbctx.Context, ev *subscriptionEvent) (uuid.UUID, error) {
	if raw, ok := ev.Metadata["user_id"].(string); ok && raw != "" {
		id, err := uuid.Parse(raw)
		if err == nil {
			usr, err := u.deps.Users.GetByID(dbc, id)
			if err != nil {
				return uuid.Nil, err
			}
			if usr != nil {
				return usr.ID, nil
			}
		}
	}
	if ev.Customer.Email == "" {
		return uuid.Nil, nil
	}
	usr, err := u.deps.Users.GetByEmail(dbc, ev.Customer.Email)
	if err != nil || usr == nil {
		return uuid.Nil, err
	}
	return usr.ID, nil
}

func (u Usecases) statusOnly(status string) eventHandler {
	return func(dbc dbctx.Context, ev *subscriptionEvent) (string, error) {
		found, err := u.deps.Subscriptions.UpdateBySubscriptionID(dbc, ev.SubscriptionID, map[string]interface{}{
			"status": status,
		})
		if err != nil || !found {
			return unknownSubscription(found), err
		}
		return "", nil
	}
}

func (u Usecases) onRenewed(dbc dbctx.Context, ev *subscriptionEvent) (string, error) {
	updates := map[string]interface{}{"status": domain.StatusActive}
	if t := parsePeriod(ev.CurrentPeriodStart); t != nil {
		updates["current_period_start"] = *t
	}
	if t := parsePeriod(ev.CurrentPeriodEnd); t != nil {
		updates["current_period_end"] = *t
	}
	return u.updateAndSyncPlan(dbc, ev.SubscriptionID, updates)
}

func (u Usecases) onExpired(dbc dbctx.Context, ev *subscriptionEvent) (string, error) {
	return u.updateAndSyncPlan(dbc, ev.SubscriptionID, map[string]interface{}{
		"status": domain.StatusExpired,
		"plan":   domain.PlanFree,
	})
}

// updateAndSyncPlan applies updates and copies the resulting entitlement onto
// the user's denormalized plan field.
func (u Usecases) updateAndSyncPlan(dbc dbctx.Context, subscriptionID string, updates map[string]interface{}) (string, error) {
	found, err := u.deps.Subscriptions.UpdateBySubscriptionID(dbc, subscriptionID, updates)
	if err != nil || !found {
		return unknownSubscription(found), err
	}
	sub, err := u.deps.Subscriptions.GetBySubscriptionID(dbc, subscriptionID)
	if err != nil || sub == nil {
		return "", err
	}
	plan := domain.PlanFree
	if sub.Entitles(domain.PlanPro) {
		plan = domain.PlanPro
	}
	return "", u.deps.Users.UpdatePlan(dbc, sub.UserID, plan)
}

func unknownSubscription(found bool) string {
	if found {
		return ""
	}
	return "unknown subscription"
}

func parsePeriod(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}
