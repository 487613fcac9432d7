package profiles

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/dvloznov/finance-dashboard/internal/kv"
	"github.com/dvloznov/finance-dashboard/internal/logger"
	"github.com/shopspring/decimal"
)

func newTestRepository(t *testing.T) (*Repository, *kv.MemoryStore) {
	t.Helper()
	store := kv.NewMemoryStore()
	r := NewRepository(store)
	r.now = func() time.Time { return time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC) }
	return r, store
}

func TestRepository_CreateListActive(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepository(t)

	names, err := r.List(ctx)
	if err != nil || len(names) != 0 {
		t.Fatalf("List on empty store = %v, %v", names, err)
	}

	if err := r.Create(ctx, "Personal"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := r.Create(ctx, "Business"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := r.Create(ctx, "Personal"); !errors.Is(err, ErrProfileExists) {
		t.Errorf("duplicate Create: got %v, want ErrProfileExists", err)
	}
	if err := r.Create(ctx, "  "); !errors.Is(err, domain.ErrInvalid) {
		t.Errorf("blank Create: got %v, want ErrInvalid", err)
	}

	names, _ = r.List(ctx)
	if len(names) != 2 || names[0] != "Personal" || names[1] != "Business" {
		t.Errorf("List = %v", names)
	}

	active, _ := r.Active(ctx)
	if active != "Personal" {
		t.Errorf("Active = %q, want first profile", active)
	}

	if err := r.SetActive(ctx, "Business"); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	if err := r.SetActive(ctx, "Missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("SetActive missing: got %v", err)
	}
	if name, _ := r.Resolve(ctx, ""); name != "Business" {
		t.Errorf("Resolve(\"\") = %q", name)
	}
}

func TestRepository_DeleteMovesActive(t *testing.T) {
	ctx := context.Background()
	r, store := newTestRepository(t)

	for _, n := range []string{"A", "B"} {
		if err := r.Create(ctx, n); err != nil {
			t.Fatal(err)
		}
	}

	if err := r.Delete(ctx, "A"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if active, _ := r.Active(ctx); active != "B" {
		t.Errorf("Active after delete = %q, want B", active)
	}
	if _, err := store.Get(ctx, "profile:A"); !errors.Is(err, kv.ErrNotFound) {
		t.Errorf("profile data not removed: %v", err)
	}
	if _, err := r.Load(ctx, "A"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Load deleted: got %v", err)
	}

	if err := r.Delete(ctx, "B"); err != nil {
		t.Fatal(err)
	}
	if active, _ := r.Active(ctx); active != "" {
		t.Errorf("Active with no profiles = %q", active)
	}
	if _, err := r.Resolve(ctx, ""); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Resolve with no profiles: got %v", err)
	}
}

func TestRepository_Update(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepository(t)
	if err := r.Create(ctx, "Personal"); err != nil {
		t.Fatal(err)
	}

	_, err := r.Update(ctx, "Personal", func(p *domain.ProfileData) error {
		p.SetCurrentBalance(decimal.RequireFromString("1250.75"))
		return p.AddTransaction(domain.NewIncome("Salary", decimal.NewFromInt(3000),
			civil.Date{Year: 2026, Month: 1, Day: 1}, domain.RecurrenceMonthly))
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	failing := errors.New("boom")
	_, err = r.Update(ctx, "Personal", func(p *domain.ProfileData) error {
		p.SetCurrentBalance(decimal.Zero)
		return failing
	})
	if !errors.Is(err, failing) {
		t.Fatalf("Update error = %v", err)
	}

	got, err := r.Load(ctx, "Personal")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !got.CurrentBalance.Equal(decimal.RequireFromString("1250.75")) {
		t.Errorf("balance = %s, failed update must not be saved", got.CurrentBalance)
	}
	if len(got.Transactions) != 1 {
		t.Errorf("got %d transactions, want 1", len(got.Transactions))
	}
}

func TestRepository_LoadNormalizesStoredData(t *testing.T) {
	ctx := context.Background()
	r, store := newTestRepository(t)
	if err := r.Create(ctx, "Old"); err != nil {
		t.Fatal(err)
	}

	raw := `{"transactions":[{"category":"payment","recurrence":"once","name":"Tax","amount":"100","date":"2026-05-01"}],"currentBalance":10}`
	if err := store.Set(ctx, "profile:Old", []byte(raw)); err != nil {
		t.Fatal(err)
	}

	got, err := r.Load(ctx, "Old")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Goals == nil || got.Accounts == nil {
		t.Error("nil collections not normalized")
	}
	p, ok := got.Transactions[0].(*domain.Payment)
	if !ok {
		t.Fatalf("got %T, want *domain.Payment", got.Transactions[0])
	}
	if p.ID == "" || p.Status != domain.StatusPending {
		t.Errorf("payment not normalized: id=%q status=%q", p.ID, p.Status)
	}
}

func TestRepository_Settings(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepository(t)

	s, err := r.Settings(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if s != domain.DefaultSettings() {
		t.Errorf("Settings on empty store = %+v", s)
	}

	if err := r.SaveSettings(ctx, domain.Settings{Currency: "EUR", APIKey: "k"}); err != nil {
		t.Fatal(err)
	}
	s, _ = r.Settings(ctx)
	if s.Currency != "EUR" || s.Language != "en" || s.APIKey != "k" {
		t.Errorf("Settings = %+v", s)
	}
}

func TestBundle_ExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src, _ := newTestRepository(t)
	for _, n := range []string{"Personal", "Business"} {
		if err := src.Create(ctx, n); err != nil {
			t.Fatal(err)
		}
	}
	_, err := src.Update(ctx, "Business", func(p *domain.ProfileData) error {
		p.SetCurrentBalance(decimal.NewFromInt(500))
		return p.AddTransaction(domain.NewInstallmentPayment("Van", decimal.NewFromInt(250),
			civil.Date{Year: 2026, Month: 3, Day: 31}, 6))
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := src.SetActive(ctx, "Business"); err != nil {
		t.Fatal(err)
	}

	b, err := src.Export(ctx)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if b.Version != BundleVersion || b.ActiveProfile != "Business" || len(b.Data) != 2 {
		t.Fatalf("bundle = %+v", b)
	}

	dst, _ := newTestRepository(t)
	if err := dst.Create(ctx, "Stale"); err != nil {
		t.Fatal(err)
	}
	if err := dst.Import(ctx, b); err != nil {
		t.Fatalf("Import: %v", err)
	}

	names, _ := dst.List(ctx)
	if len(names) != 2 || names[0] != "Personal" || names[1] != "Business" {
		t.Errorf("names after import = %v", names)
	}
	if _, err := dst.Load(ctx, "Stale"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("stale profile survived import: %v", err)
	}
	got, err := dst.Load(ctx, "Business")
	if err != nil {
		t.Fatal(err)
	}
	p := got.Transactions[0].(*domain.Payment)
	if p.Installment.CompletionDate != (civil.Date{Year: 2026, Month: 9, Day: 30}) {
		t.Errorf("completion = %s", p.Installment.CompletionDate)
	}
	if !got.CurrentBalance.Equal(decimal.NewFromInt(500)) {
		t.Errorf("balance = %s", got.CurrentBalance)
	}
}

func TestParseBundle_Rejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `{`},
		{"missing profiles", `{"version":1,"activeProfile":"A","data":{}}`},
		{"active not listed", `{"profiles":["A"],"activeProfile":"B"}`},
		{"duplicate names", `{"profiles":["A","A"],"activeProfile":"A"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseBundle(context.Background(), []byte(tt.raw)); !errors.Is(err, ErrInvalidBundle) {
				t.Errorf("got %v, want ErrInvalidBundle", err)
			}
		})
	}
}

func TestImport_InvalidBundleWritesNothing(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepository(t)
	if err := r.Create(ctx, "Keep"); err != nil {
		t.Fatal(err)
	}

	err := r.Import(ctx, &Bundle{Profiles: []string{"New"}, ActiveProfile: "Other"})
	if !errors.Is(err, ErrInvalidBundle) {
		t.Fatalf("got %v, want ErrInvalidBundle", err)
	}

	names, _ := r.List(ctx)
	if len(names) != 1 || names[0] != "Keep" {
		t.Errorf("names changed by rejected import: %v", names)
	}
}

func TestParseBundle_FillsMissingData(t *testing.T) {
	b, err := ParseBundle(context.Background(), []byte(`{"profiles":["A"],"activeProfile":"A"}`))
	if err != nil {
		t.Fatalf("ParseBundle: %v", err)
	}
	if b.Data["A"] == nil || b.Data["A"].Transactions == nil {
		t.Error("missing profile data not defaulted")
	}
}

func TestParseBundle_DropsUnreadableTransactions(t *testing.T) {
	raw := `{
		"profiles": ["A"],
		"activeProfile": "A",
		"data": {"A": {
			"currentBalance": 100,
			"transactions": [
				{"id":"salary","category":"income","recurrence":"monthly","name":"Salary","amount":3000,"date":"2026-01-01"},
				{"id":"move","category":"transfer","recurrence":"once","name":"Move","amount":50,"date":"2026-01-02"},
				{"id":"rent","category":"expense","recurrence":"monthly","name":"Rent","amount":900,"date":"01/02/2026"}
			]
		}},
		"settings": {"currency": "EUR"}
	}`

	var buf bytes.Buffer
	ctx := logger.WithContext(context.Background(), logger.NewWithWriter(&buf, "warn"))

	b, err := ParseBundle(ctx, []byte(raw))
	if err != nil {
		t.Fatalf("ParseBundle: %v", err)
	}
	if got := strings.Count(buf.String(), "Dropped unreadable transaction"); got != 2 {
		t.Errorf("logged %d dropped transactions, want 2:\n%s", got, buf.String())
	}

	r, _ := newTestRepository(t)
	if err := r.Import(ctx, b); err != nil {
		t.Fatalf("Import: %v", err)
	}
	got, err := r.Load(ctx, "A")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Transactions) != 1 || got.Transactions[0].Base().ID != "salary" {
		t.Errorf("transactions = %+v, want only salary", got.Transactions)
	}
	settings, _ := r.Settings(ctx)
	if settings.Currency != "EUR" {
		t.Errorf("currency = %q, want EUR", settings.Currency)
	}
}

func TestRepository_LoadDropsUnreadableTransactions(t *testing.T) {
	ctx := context.Background()
	r, store := newTestRepository(t)
	if err := r.Create(ctx, "A"); err != nil {
		t.Fatal(err)
	}
	stored := `{"currentBalance":10,"transactions":[{"category":"gift","name":"x","amount":1,"date":"2026-01-01"},{"id":"t","category":"expense","name":"Tea","amount":2,"date":"2026-01-01"}]}`
	if err := store.Set(ctx, "profile:A", []byte(stored)); err != nil {
		t.Fatal(err)
	}

	got, err := r.Load(ctx, "A")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Transactions) != 1 || got.Transactions[0].Base().Name != "Tea" {
		t.Errorf("transactions = %+v", got.Transactions)
	}
}
