package referral

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"monger-backend/internal/database"
	"monger-backend/internal/model"
)

// Tiers, highest first. Unknown means the name meant nothing to the monger;
// that is a normal answer, not an error.
const (
	TierUltra   = "ultra"
	TierVip     = "vip"
	TierBuyer   = "buyer"
	TierUnknown = "unknown"
)

// How the referrer was found. Empty on a miss.
const (
	MatchEmail = "email"
	MatchPhone = "phone"
	MatchName  = "name"
)

const (
	ultraThreshold = 10
	vipThreshold   = 5

	// minimum matching-blocks ratio for a name to count as the same person
	fuzzyThreshold = 0.8
)

var tierDiscounts = map[string]int{
	TierUltra:   30,
	TierVip:     20,
	TierBuyer:   10,
	TierUnknown: 0,
}

// Result is the outcome of one referral lookup.
type Result struct {
	Tier         string
	Discount     int
	DiscountCode string
	ReferrerName string
	MatchType    string
}

type Service struct {
	repo Repository
	seq  atomic.Int64
}

func New(db *database.Database) *Service {
	return &Service{repo: NewDynamoRepository(db)}
}

func NewWithRepository(repo Repository) *Service {
	return &Service{repo: repo}
}

// NormalizeQuery canonicalizes a referrer mention for lookup. Emails lowercase,
// phone-looking input collapses to digits, anything else is a lowercased name.
func NormalizeQuery(raw string) string {
	q := strings.ToLower(strings.TrimSpace(raw))
	if q == "" {
		return ""
	}
	if strings.Contains(q, "@") {
		return q
	}
	digits := digitsOnly(q)
	if len(digits) >= 10 {
		return digits
	}
	return strings.Join(strings.Fields(q), " ")
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func matchTypeFor(key string) string {
	switch {
	case strings.Contains(key, "@"):
		return MatchEmail
	case len(key) >= 10 && key == digitsOnly(key):
		return MatchPhone
	default:
		return MatchName
	}
}

// Lookup resolves a referrer mention to a tier and discount. Emails and phones
// match exactly; names fall back to a fuzzy pass over the whole network, so a
// misspelled regular still gets recognized. A miss returns TierUnknown with no
// error; only infrastructure failures are errors.
func (s *Service) Lookup(ctx context.Context, query string) (Result, error) {
	key := NormalizeQuery(query)
	if key == "" {
		return Result{Tier: TierUnknown}, nil
	}
	matchType := matchTypeFor(key)

	item, err := s.repo.GetReferral(ctx, key)
	if err == nil {
		return s.found(item, matchType), nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Result{}, fmt.Errorf("referral lookup: %w", err)
	}

	// exact key missed; names get one fuzzy pass
	if matchType != MatchName {
		return Result{Tier: TierUnknown}, nil
	}

	item, ok, err := s.fuzzyByName(ctx, key)
	if err != nil {
		return Result{}, fmt.Errorf("referral fuzzy lookup: %w", err)
	}
	if !ok {
		return Result{Tier: TierUnknown}, nil
	}
	return s.found(item, MatchName), nil
}

// fuzzyByName scans the network for a referrer whose name or nickname is close
// enough to the query. The first match over the threshold wins.
func (s *Service) fuzzyByName(ctx context.Context, name string) (model.ReferralItem, bool, error) {
	items, err := s.repo.ListReferrals(ctx)
	if err != nil {
		return model.ReferralItem{}, false, err
	}
	for _, item := range items {
		if similarity(name, NormalizeQuery(item.Name)) >= fuzzyThreshold {
			return item, true, nil
		}
		if item.Nickname != "" && similarity(name, NormalizeQuery(item.Nickname)) >= fuzzyThreshold {
			return item, true, nil
		}
	}
	return model.ReferralItem{}, false, nil
}

func (s *Service) found(item model.ReferralItem, matchType string) Result {
	tier := tierFor(item)
	res := Result{
		Tier:         tier,
		Discount:     tierDiscounts[tier],
		ReferrerName: item.Name,
		MatchType:    matchType,
	}
	if res.Discount > 0 {
		res.DiscountCode = s.mintCode(tier)
	}
	return res
}

// tierFor only ever sees records that exist, so the floor is buyer: the monger
// remembers everyone in the book, even a zero-purchase entry.
func tierFor(item model.ReferralItem) string {
	switch {
	case item.TotalPurchases >= ultraThreshold:
		return TierUltra
	case item.IsVip || item.TotalPurchases >= vipThreshold:
		return TierVip
	default:
		return TierBuyer
	}
}

func (s *Service) mintCode(tier string) string {
	return fmt.Sprintf("MONGER-%s-%d", strings.ToUpper(tier), s.seq.Add(1))
}
