package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/timesheet-invoicing/internal/application/dispatcher"
	"github.com/garyjia/timesheet-invoicing/internal/application/port"
	"github.com/garyjia/timesheet-invoicing/internal/domain/entity"
	"github.com/garyjia/timesheet-invoicing/internal/domain/errs"
	"github.com/garyjia/timesheet-invoicing/internal/domain/event"
)

// DefaultTokenTTL is how long an issued token stays usable
const DefaultTokenTTL = 30 * time.Minute

// TokenContext is what a token is bound to
type TokenContext struct {
	Operator    string
	Fingerprint string
	TemplateID  int64
	Purpose     entity.TokenPurpose
	// Selection records what the token was issued for; Consume does not
	// compare it, callers check it against what they are about to act on
	Selection   string
}

// ConfirmationContext binds a confirmation token to one invoice
func ConfirmationContext(operator string, invoiceID int64, purpose entity.TokenPurpose) TokenContext {
	return TokenContext{
		Operator:    operator,
		Fingerprint: "invoice:" + strconv.FormatInt(invoiceID, 10),
		Purpose:     purpose,
	}
}

// ActionTokenGuard issues single-use tokens and refuses replays
type ActionTokenGuard interface {
	Issue(ctx context.Context, tc TokenContext) (*entity.ActionToken, error)
	Consume(ctx context.Context, value string, tc TokenContext) (*entity.ActionToken, error)
	// Reject refuses an already consumed token for reason
	Reject(ctx context.Context, tc TokenContext, reason errs.TokenReason) error
}

type tokenGuardImpl struct {
	store      port.TokenStore
	ttl        time.Duration
	clock      Clock
	dispatcher dispatcher.Dispatcher
	logger     Logger
}

// NewActionTokenGuard creates a guard over store. A zero ttl uses DefaultTokenTTL.
func NewActionTokenGuard(store port.TokenStore, ttl time.Duration, clock Clock, d dispatcher.Dispatcher, logger Logger) ActionTokenGuard {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &tokenGuardImpl{
		store:      store,
		ttl:        ttl,
		clock:      orSystemClock(clock),
		dispatcher: d,
		logger:     orNop(logger),
	}
}

// Issue creates a token bound to tc
func (g *tokenGuardImpl) Issue(ctx context.Context, tc TokenContext) (*entity.ActionToken, error) {
	now := g.clock()
	token := &entity.ActionToken{
		Value:       uuid.NewString(),
		Operator:    tc.Operator,
		Fingerprint: tc.Fingerprint,
		TemplateID:  tc.TemplateID,
		Purpose:     tc.Purpose,
		Selection:   tc.Selection,
		IssuedAt:    now,
		ExpiresAt:   now.Add(g.ttl),
	}

	if err := g.store.Save(ctx, token); err != nil {
		g.logger.Error("Failed to save action token", "error", err, "purpose", tc.Purpose)
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return token, nil
}

// Consume takes the token out of the store before checking it, so a token
// is spent even when it turns out not to match
func (g *tokenGuardImpl) Consume(ctx context.Context, value string, tc TokenContext) (*entity.ActionToken, error) {
	if value == "" {
		return nil, g.Reject(ctx, tc, errs.TokenMissing)
	}

	token, err := g.store.Take(ctx, value)
	if err != nil {
		g.logger.Error("Failed to take action token", "error", err, "purpose", tc.Purpose)
		return nil, fmt.Errorf("consume token: %w", err)
	}

	switch {
	case token == nil:
		return nil, g.Reject(ctx, tc, errs.TokenInvalid)
	case token.Expired(g.clock()):
		return nil, g.Reject(ctx, tc, errs.TokenExpired)
	case token.Operator != tc.Operator,
		token.Fingerprint != tc.Fingerprint,
		token.TemplateID != tc.TemplateID,
		token.Purpose != tc.Purpose:
		return nil, g.Reject(ctx, tc, errs.TokenMismatch)
	}
	return token, nil
}

// Reject records a refused token and returns the matching TokenError
func (g *tokenGuardImpl) Reject(ctx context.Context, tc TokenContext, reason errs.TokenReason) error {
	g.logger.Info("Action token rejected",
		"operator", tc.Operator,
		"purpose", tc.Purpose,
		"reason", reason)

	publish(ctx, g.dispatcher, event.NewEvent(event.TypeTokenRejected, 0, map[string]interface{}{
		"operator": tc.Operator,
		"purpose":  string(tc.Purpose),
		"reason":   string(reason),
	}))
	return &errs.TokenError{Reason: reason}
}
