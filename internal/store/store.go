// Package store persists carts, quotes, practitioners and dashboard sessions.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/danmuck/klarity/internal/catalog"
	"github.com/danmuck/klarity/internal/quote"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrMissingID     = errors.New("store: missing id")
	ErrUnknownDriver = errors.New("store: unknown driver")
)

// Session binds a bearer token to a signed-in practitioner.
type Session struct {
	Token     string     `json:"token"`
	User      quote.User `json:"user"`
	CreatedAt time.Time  `json:"createdAt"`
	ExpiresAt time.Time  `json:"expiresAt"`
}

// Expired is true once now reaches ExpiresAt. A zero expiry never expires.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Store is the persistence surface used by the api package.
type Store interface {
	GetCart(ctx context.Context, id string) (quote.Cart, error)
	PutCart(ctx context.Context, cart quote.Cart) error

	PutQuote(ctx context.Context, q quote.Quote) (quote.Quote, error)
	GetQuote(ctx context.Context, id string) (quote.Quote, error)
	QuoteByToken(ctx context.Context, token string) (quote.Quote, error)
	// ListQuotes returns quotes newest first.
	ListQuotes(ctx context.Context) ([]quote.Quote, error)

	PutUser(ctx context.Context, u quote.User) error
	GetUser(ctx context.Context, id string) (quote.User, error)

	PutSession(ctx context.Context, s Session) error
	GetSession(ctx context.Context, token string) (Session, error)
	DeleteSession(ctx context.Context, token string) error

	Close() error
}

// Open builds the store named by driver ("memory" or "sqlite").
func Open(driver, path string, links quote.LinkIssuer) (Store, error) {
	switch driver {
	case "", "memory":
		return NewMemoryStore(links), nil
	case "sqlite":
		return NewSQLStore(path, links)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

// normalize fills missing magic link fields and nil collections.
// changed reports whether the stored copy needs rewriting.
func normalize(links quote.LinkIssuer, q quote.Quote) (quote.Quote, bool) {
	changed := q.MagicLinkToken == "" || q.MagicLinkURL == "" || q.LinkExpiresAt == nil
	q = links.Issue(q)
	if q.Acts == nil {
		q.Acts = []catalog.Act{}
	}
	return q, changed
}

// sortNewestFirst orders by date desc, falling back to insertion order desc.
func sortNewestFirst(quotes []quote.Quote, seq func(id string) int64) {
	sort.SliceStable(quotes, func(i, j int) bool {
		if !quotes[i].Date.Equal(quotes[j].Date) {
			return quotes[i].Date.After(quotes[j].Date)
		}
		return seq(quotes[i].ID) > seq(quotes[j].ID)
	})
}

func cloneActs(acts []catalog.Act) []catalog.Act {
	if acts == nil {
		return nil
	}
	out := make([]catalog.Act, len(acts))
	copy(out, acts)
	return out
}

func cloneQuote(q quote.Quote) quote.Quote {
	q.Acts = cloneActs(q.Acts)
	if q.CustomPrices != nil {
		prices := make(map[string]float64, len(q.CustomPrices))
		for k, v := range q.CustomPrices {
			prices[k] = v
		}
		q.CustomPrices = prices
	}
	if q.DeliveryChannels != nil {
		q.DeliveryChannels = append([]quote.Channel(nil), q.DeliveryChannels...)
	}
	if q.LinkExpiresAt != nil {
		t := *q.LinkExpiresAt
		q.LinkExpiresAt = &t
	}
	if q.LastOpenedAt != nil {
		t := *q.LastOpenedAt
		q.LastOpenedAt = &t
	}
	return q
}
