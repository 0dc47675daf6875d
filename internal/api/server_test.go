package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/danmuck/klarity/internal/auth"
	"github.com/danmuck/klarity/internal/catalog"
	"github.com/danmuck/klarity/internal/quote"
	"github.com/danmuck/klarity/internal/store"
	"github.com/danmuck/klarity/internal/testutil/testlog"
	"github.com/danmuck/klarity/internal/vision"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const testAccessCode = "cabinet-1234"

type testEnv struct {
	server *Server
	store  *store.MemoryStore
	now    time.Time
	ids    int
}

type failingAnalyzer struct{ err error }

func (f failingAnalyzer) Provider() string { return "failing" }
func (f failingAnalyzer) Analyze(context.Context, vision.Image) ([]vision.AnalyzedAct, error) {
	return nil, f.err
}

func newTestEnv(t *testing.T, analyzer vision.Analyzer) *testEnv {
	t.Helper()
	testlog.Start(t)
	gin.SetMode(gin.TestMode)
	if analyzer == nil {
		analyzer = vision.MockAnalyzer{}
	}
	env := &testEnv{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	clock := func() time.Time { return env.now }
	links := quote.LinkIssuer{BaseURL: "https://klarity.app", TTL: quote.DefaultLinkTTL, Now: clock}
	env.store = store.NewMemoryStore(links)
	env.server = New(Options{ID: "api-test", Addr: ":0"}, Deps{
		Catalog:   catalog.MustLoad(),
		Store:     env.store,
		Analyzer:  analyzer,
		Links:     links,
		Validator: auth.StaticCode{Code: testAccessCode},
		Sessions:  auth.Sessions{TTL: time.Hour},
		Now:       clock,
		NewID: func() string {
			env.ids++
			return fmt.Sprintf("id-%d", env.ids)
		},
	})
	env.server.RegisterRoutes()
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.server.HTTPRouter().ServeHTTP(rr, req)
	testlog.Logf("api: %s %s status=%d", method, path, rr.Code)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body: %v body=%s", err, rr.Body.String())
	}
	return out
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("expected status %d, got %d body=%s", want, rr.Code, rr.Body.String())
	}
}

func testImage() string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("\x89PNG\r\n\x1a\nquote"))
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(t, http.MethodGet, "/health", nil, "")
	expectStatus(t, rr, http.StatusOK)
	if body := decode[map[string]any](t, rr); body["status"] != "ok" || body["service"] != "api-test" {
		t.Fatalf("unexpected health body: %#v", body)
	}

	rr = env.do(t, http.MethodGet, "/ready", nil, "")
	expectStatus(t, rr, http.StatusOK)
	body := decode[map[string]any](t, rr)
	if body["ready"] != true || body["vision"] != "mock" {
		t.Fatalf("unexpected ready body: %#v", body)
	}

	rr = env.do(t, http.MethodGet, "/metrics", nil, "")
	expectStatus(t, rr, http.StatusOK)
}

func TestAnalyzeQuote(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(t, http.MethodGet, "/api/analyze-quote", nil, "")
	expectStatus(t, rr, http.StatusMethodNotAllowed)
	if body := decode[map[string]string](t, rr); body["error"] != "Method not allowed" {
		t.Fatalf("unexpected 405 body: %#v", body)
	}

	rr = env.do(t, http.MethodPost, "/api/analyze-quote", map[string]string{}, "")
	expectStatus(t, rr, http.StatusBadRequest)
	if body := decode[map[string]string](t, rr); body["error"] != "Image data is required" {
		t.Fatalf("unexpected 400 body: %#v", body)
	}

	rr = env.do(t, http.MethodPost, "/api/analyze-quote", "{not json", "")
	expectStatus(t, rr, http.StatusBadRequest)

	rr = env.do(t, http.MethodPost, "/api/analyze-quote", map[string]string{"image": "data:image/png,plain"}, "")
	expectStatus(t, rr, http.StatusBadRequest)

	rr = env.do(t, http.MethodPost, "/api/analyze-quote", map[string]string{"image": testImage()}, "")
	expectStatus(t, rr, http.StatusOK)
	body := decode[struct {
		Acts []vision.AnalyzedAct `json:"acts"`
	}](t, rr)
	if len(body.Acts) != 2 || body.Acts[0].CodeOr("") != "HBLD038" || body.Acts[1].Price != 21.28 {
		t.Fatalf("unexpected acts: %#v", body.Acts)
	}
}

func TestAnalyzeQuoteModelFailure(t *testing.T) {
	env := newTestEnv(t, failingAnalyzer{err: errors.New("model unavailable")})

	rr := env.do(t, http.MethodPost, "/api/analyze-quote", map[string]string{"image": testImage()}, "")
	expectStatus(t, rr, http.StatusInternalServerError)
	if body := decode[map[string]string](t, rr); body["error"] != "model unavailable" {
		t.Fatalf("unexpected 500 body: %#v", body)
	}
}

func TestScanFillsCart(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(t, http.MethodPost, "/api/scan", map[string]string{"image": testImage()}, "")
	expectStatus(t, rr, http.StatusOK)
	body := decode[struct {
		Acts      []catalog.Act `json:"acts"`
		Unknown   int           `json:"unknown"`
		Cart      quote.Cart    `json:"cart"`
		TotalBase float64       `json:"totalBase"`
	}](t, rr)
	if len(body.Acts) != 2 || body.Unknown != 0 {
		t.Fatalf("unexpected mapping: %#v", body)
	}
	if body.Acts[0].LabelPatient != "Couronne céramique" {
		t.Fatalf("expected catalog act, got %#v", body.Acts[0])
	}
	if body.Cart.ID == "" || len(body.Cart.Acts) != 2 {
		t.Fatalf("unexpected cart: %#v", body.Cart)
	}

	rr = env.do(t, http.MethodPost, "/api/scan", map[string]string{"image": testImage(), "cartId": body.Cart.ID}, "")
	expectStatus(t, rr, http.StatusOK)

	rr = env.do(t, http.MethodGet, "/api/carts/"+body.Cart.ID, nil, "")
	expectStatus(t, rr, http.StatusOK)
	cart := decode[cartView](t, rr)
	if len(cart.Acts) != 4 {
		t.Fatalf("expected 4 acts after two scans, got %d", len(cart.Acts))
	}
}

func TestActsEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)
	total := catalog.MustLoad().Len()

	rr := env.do(t, http.MethodGet, "/api/acts", nil, "")
	expectStatus(t, rr, http.StatusOK)
	if body := decode[struct {
		Count int `json:"count"`
	}](t, rr); body.Count != total {
		t.Fatalf("expected full table (%d), got %d", total, body.Count)
	}

	rr = env.do(t, http.MethodGet, "/api/acts?q=COURONNE", nil, "")
	expectStatus(t, rr, http.StatusOK)
	search := decode[struct {
		Acts []catalog.Act `json:"acts"`
	}](t, rr)
	if len(search.Acts) == 0 {
		t.Fatalf("expected couronne matches")
	}

	rr = env.do(t, http.MethodGet, "/api/acts/suggest?q=hb&limit=2", nil, "")
	expectStatus(t, rr, http.StatusOK)
	if body := decode[struct {
		Acts []catalog.Act `json:"acts"`
	}](t, rr); len(body.Acts) != 2 {
		t.Fatalf("expected 2 suggestions, got %d", len(body.Acts))
	}

	rr = env.do(t, http.MethodGet, "/api/acts/suggest?q=hb&limit=zero", nil, "")
	expectStatus(t, rr, http.StatusBadRequest)

	rr = env.do(t, http.MethodGet, "/api/acts/HBLD038", nil, "")
	expectStatus(t, rr, http.StatusOK)
	if act := decode[catalog.Act](t, rr); act.Code != "HBLD038" {
		t.Fatalf("unexpected act: %#v", act)
	}

	rr = env.do(t, http.MethodGet, "/api/acts/NOPE000", nil, "")
	expectStatus(t, rr, http.StatusNotFound)
}

func TestActInsight(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(t, http.MethodGet, "/api/acts/HBLD038/insight", nil, "")
	expectStatus(t, rr, http.StatusOK)
	body := decode[map[string]any](t, rr)
	if body["price"] != 550.0 || body["resteACharge"] != 430.0 || body["priceSignal"] != "fair" {
		t.Fatalf("unexpected insight numbers: %#v", body)
	}
	if tiers, ok := body["tiers"].([]any); !ok || len(tiers) != 3 {
		t.Fatalf("expected three tiers, got %#v", body["tiers"])
	}

	rr = env.do(t, http.MethodGet, "/api/acts/HBLD038/insight?price=300", nil, "")
	expectStatus(t, rr, http.StatusOK)
	if body := decode[map[string]any](t, rr); body["priceSignal"] != "low" {
		t.Fatalf("expected low price signal, got %#v", body["priceSignal"])
	}

	rr = env.do(t, http.MethodGet, "/api/acts/HBLD038/insight?price=900", nil, "")
	expectStatus(t, rr, http.StatusOK)
	if body := decode[map[string]any](t, rr); body["priceSignal"] != "high" {
		t.Fatalf("expected high price signal, got %#v", body["priceSignal"])
	}

	for _, raw := range []string{"-1", "NaN", "Inf", "-Inf", "abc"} {
		rr = env.do(t, http.MethodGet, "/api/acts/HBLD038/insight?price="+raw, nil, "")
		expectStatus(t, rr, http.StatusBadRequest)
	}
}

// slowCarts widens the window between reading and writing a cart.
type slowCarts struct {
	*store.MemoryStore
}

func (s slowCarts) GetCart(ctx context.Context, id string) (quote.Cart, error) {
	time.Sleep(2 * time.Millisecond)
	return s.MemoryStore.GetCart(ctx, id)
}

func TestConcurrentCartAddsKeepEveryAct(t *testing.T) {
	env := newTestEnv(t, nil)
	env.server.deps.Store = slowCarts{env.store}

	rr := env.do(t, http.MethodPost, "/api/carts", nil, "")
	expectStatus(t, rr, http.StatusCreated)
	cart := decode[cartView](t, rr)

	const workers = 20
	codes := make(chan int, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/api/carts/"+cart.ID+"/acts", strings.NewReader(`{"code":"HBJD001"}`))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			env.server.HTTPRouter().ServeHTTP(w, req)
			codes <- w.Code
		}()
	}
	wg.Wait()
	close(codes)
	for code := range codes {
		if code != http.StatusOK {
			t.Fatalf("expected 200 for every add, got %d", code)
		}
	}

	stored, err := env.store.GetCart(context.Background(), cart.ID)
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if len(stored.Acts) != workers {
		t.Fatalf("expected %d acts, got %d", workers, len(stored.Acts))
	}
}

func TestCartLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(t, http.MethodPost, "/api/carts", nil, "")
	expectStatus(t, rr, http.StatusCreated)
	cart := decode[cartView](t, rr)
	base := "/api/carts/" + cart.ID

	for _, code := range []string{"HBLD038", "HBQK002"} {
		rr = env.do(t, http.MethodPost, base+"/acts", map[string]string{"code": code}, "")
		expectStatus(t, rr, http.StatusOK)
	}
	cart = decode[cartView](t, rr)
	if len(cart.Acts) != 2 || cart.TotalBase <= 0 {
		t.Fatalf("unexpected cart: %#v", cart)
	}

	rr = env.do(t, http.MethodPost, base+"/acts", map[string]string{"code": "NOPE000"}, "")
	expectStatus(t, rr, http.StatusNotFound)
	rr = env.do(t, http.MethodPost, base+"/acts", map[string]string{}, "")
	expectStatus(t, rr, http.StatusBadRequest)

	rr = env.do(t, http.MethodDelete, base+"/acts/9", nil, "")
	expectStatus(t, rr, http.StatusBadRequest)
	rr = env.do(t, http.MethodDelete, base+"/acts/first", nil, "")
	expectStatus(t, rr, http.StatusBadRequest)

	rr = env.do(t, http.MethodDelete, base+"/acts/0", nil, "")
	expectStatus(t, rr, http.StatusOK)
	cart = decode[cartView](t, rr)
	if len(cart.Acts) != 1 || cart.Acts[0].Code != "HBQK002" {
		t.Fatalf("unexpected cart after remove: %#v", cart)
	}

	rr = env.do(t, http.MethodGet, "/api/carts/missing", nil, "")
	expectStatus(t, rr, http.StatusNotFound)
	if !strings.Contains(rr.Body.String(), "not found") {
		t.Fatalf("expected not found error, got %s", rr.Body.String())
	}
}

func TestNewWarnsWithoutValidator(t *testing.T) {
	testlog.Start(t)
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })

	links := quote.LinkIssuer{BaseURL: "https://klarity.app", TTL: quote.DefaultLinkTTL}
	srv := New(Options{ID: "open"}, Deps{
		Catalog:  catalog.MustLoad(),
		Store:    store.NewMemoryStore(links),
		Analyzer: vision.MockAnalyzer{},
		Links:    links,
	})
	srv.RegisterRoutes()

	if !strings.Contains(buf.String(), "no access code validator") {
		t.Fatalf("expected open dashboard warning, got %q", buf.String())
	}
	if _, ok := srv.deps.Validator.(auth.AnyCode); !ok {
		t.Fatalf("expected AnyCode fallback, got %T", srv.deps.Validator)
	}
}
