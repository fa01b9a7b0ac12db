package customer

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"monger-backend/internal/database"
	internaljwt "monger-backend/internal/jwt"
	"monger-backend/internal/logger"
	"monger-backend/internal/model"
)

const DefaultBlockDuration = 24 * time.Hour

type Service struct {
	repo Repository
	now  func() time.Time
}

func New(db *database.Database) *Service {
	return &Service{
		repo: NewDynamoRepository(db),
		now:  time.Now,
	}
}

func NewWithRepository(repo Repository, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{repo: repo, now: now}
}

// Resolved is the outcome of identifying a visitor: the durable customer
// record plus the token the transport should set as a cookie. Token is empty
// when the presented one is still good.
type Resolved struct {
	Customer model.CustomerItem
	Token    string
}

// Resolve turns an identity token into a customer record. A missing, expired,
// or tampered token is not an error: the visitor simply becomes a stranger
// and gets a fresh identity.
func (s *Service) Resolve(ctx context.Context, token string) (Resolved, error) {
	now := s.now().UTC().Format(time.RFC3339)

	if token != "" {
		identity, err := internaljwt.ParseIdentityToken(token)
		if err == nil {
			existing, err := s.repo.GetCustomer(ctx, identity.CustomerID)
			if err == nil {
				if err := s.repo.TouchLastSeen(ctx, existing.CustomerID, now); err != nil {
					logger.Logger.Warn().Err(err).Str("customerId", existing.CustomerID).Msg("touch last seen failed")
				}
				existing.LastSeenAt = now
				return Resolved{Customer: existing}, nil
			}
			if !errors.Is(err, ErrNotFound) {
				return Resolved{}, newError(ErrorCodeInternal, "failed to load customer", err)
			}
			// valid token for a purged record; fall through and re-mint
		}
	}

	item := model.CustomerItem{
		CustomerID: uuid.NewString(),
		CreatedAt:  now,
		LastSeenAt: now,
	}
	if err := s.repo.CreateCustomer(ctx, item); err != nil {
		return Resolved{}, newError(ErrorCodeInternal, "failed to create customer", err)
	}

	fresh, err := internaljwt.CreateIdentityToken(internaljwt.Identity{CustomerID: item.CustomerID}, 0)
	if err != nil {
		return Resolved{}, newError(ErrorCodeInternal, "failed to issue identity token", err)
	}

	return Resolved{Customer: item, Token: fresh}, nil
}

func (s *Service) Get(ctx context.Context, customerID string) (model.CustomerItem, error) {
	if customerID == "" {
		return model.CustomerItem{}, newError(ErrorCodeValidation, "customer id is required", nil)
	}
	item, err := s.repo.GetCustomer(ctx, customerID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.CustomerItem{}, newError(ErrorCodeNotFound, "customer not found", err)
		}
		return model.CustomerItem{}, newError(ErrorCodeInternal, "failed to load customer", err)
	}
	return item, nil
}

// IsBlocked reports whether the customer is inside a time-waster block window.
// An unparseable timestamp counts as not blocked.
func IsBlocked(c model.CustomerItem, now time.Time) bool {
	if c.BlockedUntil == "" {
		return false
	}
	until, err := time.Parse(time.RFC3339, c.BlockedUntil)
	if err != nil {
		return false
	}
	return now.Before(until)
}

// MarkBlocked stamps a block window on the customer. Zero duration uses the
// default.
func (s *Service) MarkBlocked(ctx context.Context, customerID string, d time.Duration) (time.Time, error) {
	if customerID == "" {
		return time.Time{}, newError(ErrorCodeValidation, "customer id is required", nil)
	}
	if d <= 0 {
		d = DefaultBlockDuration
	}
	until := s.now().UTC().Add(d)
	if err := s.repo.SetBlockedUntil(ctx, customerID, until.Format(time.RFC3339)); err != nil {
		return time.Time{}, newError(ErrorCodeInternal, "failed to block customer", err)
	}
	return until, nil
}

// RecordPurchase bumps the lifetime count and lifts any block. Returns the
// updated record.
func (s *Service) RecordPurchase(ctx context.Context, customerID string) (model.CustomerItem, error) {
	if customerID == "" {
		return model.CustomerItem{}, newError(ErrorCodeValidation, "customer id is required", nil)
	}
	item, err := s.repo.RecordPurchase(ctx, customerID, s.now().UTC().Format(time.RFC3339))
	if err != nil {
		return model.CustomerItem{}, newError(ErrorCodeInternal, "failed to record purchase", err)
	}
	return item, nil
}
