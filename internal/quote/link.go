package quote

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultLinkTTL is how long a magic link stays valid after issue.
const DefaultLinkTTL = 15 * 24 * time.Hour

var ErrLinkExpired = errors.New("quote: magic link expired")

// LinkIssuer fills magic link fields on quotes.
type LinkIssuer struct {
	BaseURL  string
	TTL      time.Duration
	NewToken func() string
	Now      func() time.Time
}

func NewLinkIssuer(baseURL string, ttl time.Duration) LinkIssuer {
	return LinkIssuer{BaseURL: baseURL, TTL: ttl}
}

// Issue fills whichever link fields are missing and keeps the others,
// so re-issuing a stored quote never rotates its token or resets counters.
func (li LinkIssuer) Issue(q Quote) Quote {
	if q.MagicLinkToken == "" {
		q.MagicLinkToken = li.token()
	}
	if q.LinkExpiresAt == nil {
		expires := li.now().Add(li.ttl())
		q.LinkExpiresAt = &expires
	}
	if q.MagicLinkURL == "" {
		q.MagicLinkURL = li.URL(q.MagicLinkToken)
	}
	if q.DeliveryChannels == nil {
		q.DeliveryChannels = []Channel{}
	}
	if q.CustomPrices == nil {
		q.CustomPrices = map[string]float64{}
	}
	return q
}

// URL renders <base>/d/<token>.
func (li LinkIssuer) URL(token string) string {
	return strings.TrimRight(li.BaseURL, "/") + "/d/" + token
}

func (li LinkIssuer) token() string {
	if li.NewToken != nil {
		return li.NewToken()
	}
	return uuid.NewString()
}

func (li LinkIssuer) now() time.Time {
	if li.Now != nil {
		return li.Now()
	}
	return time.Now().UTC()
}

func (li LinkIssuer) ttl() time.Duration {
	if li.TTL > 0 {
		return li.TTL
	}
	return DefaultLinkTTL
}

// Expired is true once now reaches the link expiry. Quotes without expiry never expire.
func (q Quote) Expired(now time.Time) bool {
	return q.LinkExpiresAt != nil && !now.Before(*q.LinkExpiresAt)
}

// RecordOpen counts one open of the magic link at now.
func (q *Quote) RecordOpen(now time.Time) {
	q.OpenCount++
	opened := now
	q.LastOpenedAt = &opened
}

// Open records an open unless the link is expired.
func (q *Quote) Open(now time.Time) error {
	if q.Expired(now) {
		return ErrLinkExpired
	}
	q.RecordOpen(now)
	return nil
}
