package quote

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/danmuck/klarity/internal/catalog"
	"github.com/danmuck/klarity/internal/testutil/testlog"
)

var (
	couronne = catalog.Act{Code: "HBLD038", LabelPatient: "Couronne céramique", Category: catalog.CategoryProthese, PriceAvgProvince: 550, BaseRemboursement: 120, Reimbursable: true}
	carie    = catalog.Act{Code: "HBMD049", LabelPatient: "Soin de carie (1 face)", Category: catalog.CategorySoin, PriceAvgProvince: 26.97, BaseRemboursement: 26.97, Reimbursable: true}
	implant  = catalog.Act{Code: "LBLD015", LabelPatient: "Pose d'un implant dentaire", Category: catalog.CategoryImplantologie, PriceAvgProvince: 1000}
)

func almost(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCartAddRemoveTotal(t *testing.T) {
	testlog.Start(t)
	cart := NewCart("c1")
	cart.Add(couronne, carie, couronne)
	if !almost(cart.TotalBase(), 266.97) {
		t.Fatalf("unexpected total base: %v", cart.TotalBase())
	}
	if err := cart.Remove(1); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(cart.Acts) != 2 || cart.Acts[1].Code != "HBLD038" {
		t.Fatalf("unexpected acts after remove: %+v", cart.Acts)
	}
	if err := cart.Remove(5); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
	if err := cart.Remove(-1); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange for negative index, got %v", err)
	}
	testlog.Logf("quote/cart: acts=%d base=%.2f", len(cart.Acts), cart.TotalBase())
}

func TestDraftPricesAndTotals(t *testing.T) {
	d := NewDraft()
	d.AddAct(couronne)
	if d.CustomPrices["HBLD038"] != 550 {
		t.Fatalf("expected seeded price 550, got %v", d.CustomPrices["HBLD038"])
	}
	d.SetPrice("HBLD038", 600)
	d.AddAct(couronne)
	if d.CustomPrices["HBLD038"] != 600 {
		t.Fatalf("re-adding must keep the custom price, got %v", d.CustomPrices["HBLD038"])
	}
	d.AddAct(implant)
	if !almost(d.Total(), 2200) {
		t.Fatalf("unexpected total: %v", d.Total())
	}
	if !almost(d.ResteACharge(), 2200-240) {
		t.Fatalf("unexpected reste: %v", d.ResteACharge())
	}

	// acts without a custom price use their reference price
	delete(d.CustomPrices, "LBLD015")
	if !almost(d.Total(), 2200) {
		t.Fatalf("expected reference fallback, got %v", d.Total())
	}
	if err := d.RemoveAct(0); err != nil {
		t.Fatalf("remove act: %v", err)
	}
	if !almost(d.Total(), 1600) {
		t.Fatalf("unexpected total after remove: %v", d.Total())
	}
}

func TestDraftToggleChannel(t *testing.T) {
	d := NewDraft()
	if err := d.ToggleChannel(ChannelSMS); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if len(d.DeliveryChannels) != 1 || d.DeliveryChannels[0] != ChannelEmail {
		t.Fatalf("expected only email left, got %+v", d.DeliveryChannels)
	}
	if err := d.ToggleChannel(ChannelWhatsApp); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if len(d.DeliveryChannels) != 2 {
		t.Fatalf("expected 2 channels, got %+v", d.DeliveryChannels)
	}
	if err := d.ToggleChannel("pigeon"); !errors.Is(err, ErrUnknownChannel) {
		t.Fatalf("expected ErrUnknownChannel, got %v", err)
	}
}

func TestDraftValidateOrder(t *testing.T) {
	tests := []struct {
		name  string
		draft Draft
		want  error
	}{
		{name: "patient first", draft: Draft{DeliveryChannels: nil}, want: ErrMissingPatient},
		{name: "then channels", draft: Draft{PatientName: "Jean", Acts: []catalog.Act{carie}}, want: ErrNoChannel},
		{name: "then acts", draft: Draft{PatientName: "Jean", DeliveryChannels: []Channel{ChannelSMS}}, want: ErrNoActs},
		{name: "valid", draft: Draft{PatientName: "Jean", DeliveryChannels: []Channel{ChannelSMS}, Acts: []catalog.Act{carie}}, want: nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.draft.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestDraftBuildAndIssueLink(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	d := NewDraft()
	d.PatientName = "  Jeanne Dupont "
	d.AddAct(couronne)

	q, err := d.Build("q1", now, DefaultLinkTTL)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if q.Status != StatusSent || q.PatientName != "Jeanne Dupont" || q.Total != 550 {
		t.Fatalf("unexpected quote: %+v", q)
	}
	if !q.LinkExpiresAt.Equal(now.Add(15 * 24 * time.Hour)) {
		t.Fatalf("unexpected expiry: %v", q.LinkExpiresAt)
	}

	issuer := LinkIssuer{
		BaseURL:  "https://klarity.app/",
		NewToken: func() string { return "tok-1" },
		Now:      func() time.Time { return now },
	}
	linked := issuer.Issue(q)
	if linked.MagicLinkToken != "tok-1" || linked.MagicLinkURL != "https://klarity.app/d/tok-1" {
		t.Fatalf("unexpected link: %q %q", linked.MagicLinkToken, linked.MagicLinkURL)
	}
	if !linked.LinkExpiresAt.Equal(*q.LinkExpiresAt) {
		t.Fatalf("issue must keep the draft expiry")
	}

	linked.RecordOpen(now)
	issuer.NewToken = func() string { return "tok-2" }
	again := issuer.Issue(linked)
	if again.MagicLinkToken != "tok-1" || again.OpenCount != 1 {
		t.Fatalf("re-issue must be idempotent, got token=%q opens=%d", again.MagicLinkToken, again.OpenCount)
	}
}

func TestIssueFillsMissingExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	issuer := LinkIssuer{BaseURL: "https://klarity.app", Now: func() time.Time { return now }}
	q := issuer.Issue(Quote{ID: "legacy"})
	if q.MagicLinkToken == "" {
		t.Fatalf("expected uuid token")
	}
	if !q.LinkExpiresAt.Equal(now.Add(DefaultLinkTTL)) {
		t.Fatalf("unexpected expiry: %v", q.LinkExpiresAt)
	}
	if q.DeliveryChannels == nil || q.CustomPrices == nil || q.LastOpenedAt != nil || q.OpenCount != 0 {
		t.Fatalf("expected normalized empty fields, got %+v", q)
	}
}

func TestOpenTrackingAndExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	expires := now.Add(time.Hour)
	q := Quote{LinkExpiresAt: &expires}

	if err := q.Open(now); err != nil {
		t.Fatalf("open: %v", err)
	}
	later := now.Add(30 * time.Minute)
	if err := q.Open(later); err != nil {
		t.Fatalf("open: %v", err)
	}
	if q.OpenCount != 2 || !q.LastOpenedAt.Equal(later) {
		t.Fatalf("unexpected tracking: count=%d last=%v", q.OpenCount, q.LastOpenedAt)
	}
	if err := q.Open(expires); !errors.Is(err, ErrLinkExpired) {
		t.Fatalf("expected ErrLinkExpired at expiry instant, got %v", err)
	}
	if q.OpenCount != 2 {
		t.Fatalf("expired open must not count, got %d", q.OpenCount)
	}
	if (Quote{}).Expired(now) {
		t.Fatalf("quote without expiry must not expire")
	}
}

func TestQuoteMoneyHelpers(t *testing.T) {
	q := Quote{Acts: []catalog.Act{couronne, carie}, Total: 100}
	if q.ResteACharge() != 0 {
		t.Fatalf("reste must clamp at zero, got %v", q.ResteACharge())
	}
	q.Total = 700
	if !almost(q.ResteACharge(), 700-146.97) {
		t.Fatalf("unexpected reste: %v", q.ResteACharge())
	}
	if q.Complication() != 550 {
		t.Fatalf("unexpected complication: %v", q.Complication())
	}
	if (Quote{}).Complication() != 200 {
		t.Fatalf("expected 200 fallback")
	}
	if q.ActsLabel() != "2 actes" || (Quote{Acts: []catalog.Act{carie}}).ActsLabel() != "1 acte" {
		t.Fatalf("unexpected labels")
	}
	q.Accept()
	if q.Status != StatusAccepted || q.Status.Label() != "Accepté" {
		t.Fatalf("unexpected status: %q", q.Status)
	}
}

func TestFairPrice(t *testing.T) {
	if FairPrice(400, couronne) != PriceLow {
		t.Fatalf("400 < 440 should be low")
	}
	if FairPrice(440, couronne) != PriceFair {
		t.Fatalf("440 is exactly 80%% and should be fair")
	}
	if FairPrice(660, couronne) != PriceFair {
		t.Fatalf("660 is exactly 120%% and should be fair")
	}
	if FairPrice(1100, couronne) != PriceHigh {
		t.Fatalf("1100 > 660 should be high")
	}
	if FairPrice(50, catalog.Act{Code: "X"}) != PriceHigh {
		t.Fatalf("any fee without an average should be high")
	}
	if FairPrice(0, catalog.Act{Code: "X"}) != PriceFair {
		t.Fatalf("zero fee without an average should be fair")
	}
}

func TestNewUser(t *testing.T) {
	u, err := NewUser("u1", " Dr Martin ", "dr.martin@cabinet.fr", "", "123-456")
	if err != nil {
		t.Fatalf("new user: %v", err)
	}
	if u.Name != "Dr Martin" || u.Role != RoleTitulaire {
		t.Fatalf("unexpected user: %+v", u)
	}
	if _, err := NewUser("u2", "Dr Martin", "dr.martin@cabinet.fr", RoleAssistante, ""); !errors.Is(err, ErrIncompleteLogin) {
		t.Fatalf("expected ErrIncompleteLogin, got %v", err)
	}
	if _, err := NewUser("u3", "Dr Martin", "dr.martin@cabinet.fr", "stagiaire", "1"); !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}
}
