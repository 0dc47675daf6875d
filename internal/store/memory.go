package store

import (
	"context"
	"strings"
	"sync"

	"github.com/danmuck/klarity/internal/quote"
)

// MemoryStore keeps everything in process maps. Values are copied on the way
// in and out so callers never share slices with the store.
type MemoryStore struct {
	links quote.LinkIssuer

	mu       sync.RWMutex
	carts    map[string]quote.Cart
	quotes   map[string]quote.Quote
	seq      map[string]int64
	nextSeq  int64
	tokens   map[string]string
	users    map[string]quote.User
	sessions map[string]Session
}

func NewMemoryStore(links quote.LinkIssuer) *MemoryStore {
	return &MemoryStore{
		links:    links,
		carts:    make(map[string]quote.Cart),
		quotes:   make(map[string]quote.Quote),
		seq:      make(map[string]int64),
		tokens:   make(map[string]string),
		users:    make(map[string]quote.User),
		sessions: make(map[string]Session),
	}
}

func (m *MemoryStore) GetCart(_ context.Context, id string) (quote.Cart, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cart, ok := m.carts[id]
	if !ok {
		return quote.Cart{}, ErrNotFound
	}
	cart.Acts = cloneActs(cart.Acts)
	return cart, nil
}

func (m *MemoryStore) PutCart(_ context.Context, cart quote.Cart) error {
	if strings.TrimSpace(cart.ID) == "" {
		return ErrMissingID
	}
	cart.Acts = cloneActs(cart.Acts)
	m.mu.Lock()
	m.carts[cart.ID] = cart
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) PutQuote(_ context.Context, q quote.Quote) (quote.Quote, error) {
	if strings.TrimSpace(q.ID) == "" {
		return quote.Quote{}, ErrMissingID
	}
	q, _ = normalize(m.links, cloneQuote(q))

	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.quotes[q.ID]; ok && prev.MagicLinkToken != q.MagicLinkToken {
		delete(m.tokens, prev.MagicLinkToken)
	}
	if _, ok := m.seq[q.ID]; !ok {
		m.nextSeq++
		m.seq[q.ID] = m.nextSeq
	}
	m.quotes[q.ID] = q
	m.tokens[q.MagicLinkToken] = q.ID
	return cloneQuote(q), nil
}

func (m *MemoryStore) GetQuote(_ context.Context, id string) (quote.Quote, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.quotes[id]
	if !ok {
		return quote.Quote{}, ErrNotFound
	}
	return cloneQuote(q), nil
}

func (m *MemoryStore) QuoteByToken(ctx context.Context, token string) (quote.Quote, error) {
	m.mu.RLock()
	id, ok := m.tokens[token]
	m.mu.RUnlock()
	if !ok || token == "" {
		return quote.Quote{}, ErrNotFound
	}
	return m.GetQuote(ctx, id)
}

func (m *MemoryStore) ListQuotes(_ context.Context) ([]quote.Quote, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]quote.Quote, 0, len(m.quotes))
	for _, q := range m.quotes {
		out = append(out, cloneQuote(q))
	}
	sortNewestFirst(out, func(id string) int64 { return m.seq[id] })
	return out, nil
}

func (m *MemoryStore) PutUser(_ context.Context, u quote.User) error {
	if strings.TrimSpace(u.ID) == "" {
		return ErrMissingID
	}
	m.mu.Lock()
	m.users[u.ID] = u
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) GetUser(_ context.Context, id string) (quote.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return quote.User{}, ErrNotFound
	}
	return u, nil
}

func (m *MemoryStore) PutSession(_ context.Context, s Session) error {
	if strings.TrimSpace(s.Token) == "" {
		return ErrMissingID
	}
	m.mu.Lock()
	m.sessions[s.Token] = s
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) GetSession(_ context.Context, token string) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[token]
	if !ok {
		return Session{}, ErrNotFound
	}
	return s, nil
}

func (m *MemoryStore) DeleteSession(_ context.Context, token string) error {
	m.mu.Lock()
	delete(m.sessions, token)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Close() error { return nil }
