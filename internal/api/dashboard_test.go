package api

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/klarity/internal/pricing"
	"github.com/danmuck/klarity/internal/quote"
)

func login(t *testing.T, env *testEnv) string {
	t.Helper()
	rr := env.do(t, http.MethodPost, "/api/login", map[string]string{
		"name":       "Dr Martin",
		"email":      "martin@cabinet.fr",
		"role":       "titulaire",
		"accessCode": testAccessCode,
	}, "")
	expectStatus(t, rr, http.StatusOK)
	body := decode[struct {
		Token string     `json:"token"`
		User  quote.User `json:"user"`
	}](t, rr)
	if body.Token == "" || body.User.Name != "Dr Martin" {
		t.Fatalf("unexpected login body: %#v", body)
	}
	return body.Token
}

func sendQuote(t *testing.T, env *testEnv, token string) quote.Quote {
	t.Helper()
	price := 600.0
	rr := env.do(t, http.MethodPost, "/api/dashboard/quotes", map[string]any{
		"patientName":  "Marie Dupont",
		"patientEmail": "marie@example.fr",
		"acts": []map[string]any{
			{"code": "HBLD038", "price": price},
			{"code": "HBQK002"},
		},
	}, token)
	expectStatus(t, rr, http.StatusCreated)
	return decode[quote.Quote](t, rr)
}

func TestLoginRejections(t *testing.T) {
	env := newTestEnv(t, nil)
	tests := []struct {
		name string
		body map[string]string
		want int
	}{
		{name: "wrong code", body: map[string]string{"name": "A", "email": "a@b.fr", "accessCode": "nope"}, want: http.StatusUnauthorized},
		{name: "missing name", body: map[string]string{"email": "a@b.fr", "accessCode": testAccessCode}, want: http.StatusBadRequest},
		{name: "unknown role", body: map[string]string{"name": "A", "email": "a@b.fr", "role": "dentiste", "accessCode": testAccessCode}, want: http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := env.do(t, http.MethodPost, "/api/login", tc.body, "")
			expectStatus(t, rr, tc.want)
		})
	}
}

func TestDashboardRequiresSession(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, path := range []string{"/api/me", "/api/dashboard/quotes", "/api/dashboard/stats"} {
		rr := env.do(t, http.MethodGet, path, nil, "")
		expectStatus(t, rr, http.StatusUnauthorized)
		rr = env.do(t, http.MethodGet, path, nil, "forged")
		expectStatus(t, rr, http.StatusUnauthorized)
	}

	token := login(t, env)
	rr := env.do(t, http.MethodGet, "/api/me", nil, token)
	expectStatus(t, rr, http.StatusOK)

	env.now = env.now.Add(2 * time.Hour)
	rr = env.do(t, http.MethodGet, "/api/me", nil, token)
	expectStatus(t, rr, http.StatusUnauthorized)
	if !strings.Contains(rr.Body.String(), "session expired") {
		t.Fatalf("expected session expired error, got %s", rr.Body.String())
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	env := newTestEnv(t, nil)
	token := login(t, env)

	rr := env.do(t, http.MethodPost, "/api/logout", nil, token)
	expectStatus(t, rr, http.StatusNoContent)
	rr = env.do(t, http.MethodGet, "/api/me", nil, token)
	expectStatus(t, rr, http.StatusUnauthorized)
}

func TestCreateQuoteValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	token := login(t, env)
	tests := []struct {
		name    string
		body    map[string]any
		wantErr string
	}{
		{name: "patient checked first", body: map[string]any{"deliveryChannels": []string{}}, wantErr: quote.ErrMissingPatient.Error()},
		{name: "channels before acts", body: map[string]any{"patientName": "Marie", "deliveryChannels": []string{}}, wantErr: quote.ErrNoChannel.Error()},
		{name: "acts required", body: map[string]any{"patientName": "Marie"}, wantErr: quote.ErrNoActs.Error()},
		{name: "unknown channel", body: map[string]any{"patientName": "Marie", "deliveryChannels": []string{"fax"}, "acts": []map[string]any{{"code": "HBLD038"}}}, wantErr: quote.ErrUnknownChannel.Error()},
		{name: "unknown act", body: map[string]any{"patientName": "Marie", "acts": []map[string]any{{"code": "NOPE000"}}}, wantErr: "act not found"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := env.do(t, http.MethodPost, "/api/dashboard/quotes", tc.body, token)
			expectStatus(t, rr, http.StatusBadRequest)
			if !strings.Contains(rr.Body.String(), tc.wantErr) {
				t.Fatalf("expected %q in body, got %s", tc.wantErr, rr.Body.String())
			}
		})
	}
}

func TestCreateQuoteIssuesMagicLink(t *testing.T) {
	env := newTestEnv(t, nil)
	token := login(t, env)
	q := sendQuote(t, env, token)

	if q.Status != quote.StatusSent {
		t.Fatalf("expected sent status, got %s", q.Status)
	}
	// 600 custom + 21.28 reference for the panoramic x-ray
	if q.Total != 621.28 {
		t.Fatalf("unexpected total: %v", q.Total)
	}
	if !strings.HasPrefix(q.MagicLinkURL, "https://klarity.app/d/") || q.MagicLinkToken == "" {
		t.Fatalf("unexpected magic link: %q token=%q", q.MagicLinkURL, q.MagicLinkToken)
	}
	if q.LinkExpiresAt == nil || !q.LinkExpiresAt.Equal(env.now.Add(quote.DefaultLinkTTL)) {
		t.Fatalf("unexpected expiry: %v", q.LinkExpiresAt)
	}
	if len(q.DeliveryChannels) != 2 || q.OpenCount != 0 || q.LastOpenedAt != nil {
		t.Fatalf("unexpected defaults: %#v", q)
	}

	env.now = env.now.Add(time.Minute)
	second := sendQuote(t, env, token)

	rr := env.do(t, http.MethodGet, "/api/dashboard/quotes", nil, token)
	expectStatus(t, rr, http.StatusOK)
	list := decode[struct {
		Quotes []quote.Quote `json:"quotes"`
	}](t, rr)
	if len(list.Quotes) != 2 || list.Quotes[0].ID != second.ID {
		t.Fatalf("expected newest quote first, got %#v", list.Quotes)
	}

	rr = env.do(t, http.MethodGet, "/api/dashboard/quotes/"+q.ID, nil, token)
	expectStatus(t, rr, http.StatusOK)
	rr = env.do(t, http.MethodGet, "/api/dashboard/quotes/missing", nil, token)
	expectStatus(t, rr, http.StatusNotFound)
}

func TestMagicLinkOpenAcceptAndExpiry(t *testing.T) {
	env := newTestEnv(t, nil)
	token := login(t, env)
	q := sendQuote(t, env, token)
	link := "/d/" + q.MagicLinkToken

	rr := env.do(t, http.MethodGet, link, nil, "")
	expectStatus(t, rr, http.StatusOK)
	page := decode[landing](t, rr)
	if page.Quote.OpenCount != 1 || page.Quote.LastOpenedAt == nil {
		t.Fatalf("expected open recorded, got %#v", page.Quote)
	}
	if page.Inaction == nil || page.Inaction.Act != "HBLD038" {
		t.Fatalf("expected inaction timeline for first act, got %#v", page.Inaction)
	}
	if len(page.Tiers) != 3 || len(page.Reviews) != 3 {
		t.Fatalf("unexpected landing content: tiers=%d reviews=%d", len(page.Tiers), len(page.Reviews))
	}
	wantReste := q.ResteACharge()
	if page.ResteACharge != wantReste || page.Financing.Monthly != pricing.Monthly(wantReste) {
		t.Fatalf("unexpected reste/financing: %#v", page)
	}

	env.now = env.now.Add(time.Hour)
	rr = env.do(t, http.MethodGet, link, nil, "")
	expectStatus(t, rr, http.StatusOK)
	if page := decode[landing](t, rr); page.Quote.OpenCount != 2 {
		t.Fatalf("expected second open, got %d", page.Quote.OpenCount)
	}

	rr = env.do(t, http.MethodPost, link+"/accept", nil, "")
	expectStatus(t, rr, http.StatusOK)
	if accepted := decode[quote.Quote](t, rr); accepted.Status != quote.StatusAccepted {
		t.Fatalf("expected accepted, got %s", accepted.Status)
	}

	rr = env.do(t, http.MethodGet, "/api/dashboard/stats", nil, token)
	expectStatus(t, rr, http.StatusOK)
	stats := decode[pricing.Stats](t, rr)
	if stats.Quotes != 1 || stats.AcceptanceRate != 100 || stats.OpenEvents != 2 || stats.Pending != 0 {
		t.Fatalf("unexpected stats: %#v", stats)
	}

	env.now = q.LinkExpiresAt.Add(time.Second)
	rr = env.do(t, http.MethodGet, link, nil, "")
	expectStatus(t, rr, http.StatusGone)
	rr = env.do(t, http.MethodPost, link+"/accept", nil, "")
	expectStatus(t, rr, http.StatusGone)

	stored, err := env.store.GetQuote(t.Context(), q.ID)
	if err != nil {
		t.Fatalf("get quote: %v", err)
	}
	if stored.OpenCount != 2 {
		t.Fatalf("expired open must not count, got %d", stored.OpenCount)
	}

	rr = env.do(t, http.MethodGet, "/d/unknown-token", nil, "")
	expectStatus(t, rr, http.StatusNotFound)
}

func TestSimulateOpenIgnoresExpiry(t *testing.T) {
	env := newTestEnv(t, nil)
	token := login(t, env)
	q := sendQuote(t, env, token)

	env.now = q.LinkExpiresAt.Add(time.Hour)
	token = login(t, env)
	rr := env.do(t, http.MethodPost, "/api/dashboard/quotes/"+q.ID+"/open", nil, token)
	expectStatus(t, rr, http.StatusOK)
	if opened := decode[quote.Quote](t, rr); opened.OpenCount != 1 || opened.LastOpenedAt == nil {
		t.Fatalf("expected simulated open, got %#v", opened)
	}
}
