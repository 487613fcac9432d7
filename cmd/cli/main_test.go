package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-dashboard/internal/config"
	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/dvloznov/finance-dashboard/internal/insights"
	"github.com/dvloznov/finance-dashboard/internal/kv"
	"github.com/dvloznov/finance-dashboard/internal/profiles"
)

func newTestApp(t *testing.T) (*app, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	return &app{
		cfg:   &config.Config{},
		log:   zerolog.Nop(),
		repo:  profiles.NewRepository(kv.NewMemoryStore()),
		out:   &out,
		today: func() civil.Date { return civil.Date{Year: 2026, Month: time.October, Day: 18} },
	}, &out
}

func run(t *testing.T, a *app, name string, args ...string) error {
	t.Helper()
	for _, c := range commands {
		if c.name == name {
			return c.run(context.Background(), a, args)
		}
	}
	t.Fatalf("no command %q", name)
	return nil
}

func mustRun(t *testing.T, a *app, name string, args ...string) {
	t.Helper()
	if err := run(t, a, name, args...); err != nil {
		t.Fatalf("%s %v: %v", name, args, err)
	}
}

func seed(t *testing.T, a *app) {
	t.Helper()
	mustRun(t, a, "profiles", "create", "Personal")
	mustRun(t, a, "profiles", "set-balance", "Personal", "2000")

	_, err := a.repo.Update(context.Background(), "Personal", func(p *domain.ProfileData) error {
		txs := []domain.Transaction{
			domain.NewIncome("Salary", mustDecimal(t, "3000"), civil.Date{Year: 2026, Month: 1, Day: 1}, domain.RecurrenceMonthly),
			domain.NewExpense("Rent", mustDecimal(t, "1000"), civil.Date{Year: 2026, Month: 1, Day: 15}, domain.RecurrenceMonthly),
			domain.NewInstallmentPayment("Sofa", mustDecimal(t, "200"), civil.Date{Year: 2026, Month: 6, Day: 20}, 10),
		}
		for _, tx := range txs {
			if err := p.AddTransaction(tx); err != nil {
				return err
			}
		}
		_, err := p.AddGoal(domain.SavingsGoal{Name: "Trip", TargetAmount: mustDecimal(t, "3600")})
		return err
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestProfilesCommand(t *testing.T) {
	a, out := newTestApp(t)

	mustRun(t, a, "profiles")
	if !strings.Contains(out.String(), "No profiles yet") {
		t.Errorf("empty list output: %s", out.String())
	}

	mustRun(t, a, "profiles", "create", "Personal")
	mustRun(t, a, "profiles", "create", "Business")
	mustRun(t, a, "profiles", "use", "Business")
	out.Reset()
	mustRun(t, a, "profiles", "list")
	for _, want := range []string{"Personal", "Business", "*"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("list output missing %q: %s", want, out.String())
		}
	}

	if err := run(t, a, "profiles", "create", "Personal"); !errors.Is(err, profiles.ErrProfileExists) {
		t.Errorf("duplicate create: %v", err)
	}
	if err := run(t, a, "profiles", "rename"); err == nil {
		t.Error("unknown action accepted")
	}
}

func TestProjectionCommands(t *testing.T) {
	a, out := newTestApp(t)
	seed(t, a)

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"balance", nil, []string{"Balance of Personal, Oct 2026", "2026-10-18", "$2,000.00", "today"}},
		{"cashflow", []string{"-months", "3"}, []string{"Aug 2026", "Oct 2026", "Net monthly savings: $1,800.00"}},
		{"debt", nil, []string{"$1,200.00", "Debt free in Apr 2027"}},
		{"goals", nil, []string{"Trip", "0.0%", "All goals reached in Dec 2026 (2 months)"}},
		{"upcoming", nil, []string{"Sofa", "$200.00", "Total: $200.00"}},
		{"upcoming", []string{"-month", "2027-06"}, []string{"No payments due in Jun 2027."}},
	}

	for _, tt := range tests {
		t.Run(tt.name+strings.Join(tt.args, ""), func(t *testing.T) {
			out.Reset()
			mustRun(t, a, tt.name, tt.args...)
			for _, want := range tt.want {
				if !strings.Contains(out.String(), want) {
					t.Errorf("output missing %q:\n%s", want, out.String())
				}
			}
		})
	}
}

func TestBalance_InvalidFlags(t *testing.T) {
	a, _ := newTestApp(t)
	seed(t, a)

	if err := run(t, a, "balance", "-month", "October"); err == nil {
		t.Error("bad month accepted")
	}
	if err := run(t, a, "balance", "-as-of", "tomorrow"); err == nil {
		t.Error("bad as-of accepted")
	}
	if err := run(t, a, "balance", "-profile", "Nobody"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("missing profile: %v", err)
	}
}

func TestExportImportCommands(t *testing.T) {
	a, _ := newTestApp(t)
	seed(t, a)

	path := filepath.Join(t.TempDir(), "bundle.json")
	mustRun(t, a, "export", "-o", path)

	b, out := newTestApp(t)
	mustRun(t, b, "profiles", "create", "Stale")
	mustRun(t, b, "import", "-i", path)
	if !strings.Contains(out.String(), "Imported 1 profile, active profile Personal") {
		t.Errorf("import output: %s", out.String())
	}

	names, err := b.repo.List(context.Background())
	if err != nil || len(names) != 1 || names[0] != "Personal" {
		t.Errorf("profiles after import = %v, %v", names, err)
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte(`{"activeProfile":"x"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := run(t, b, "import", "-i", bad); !errors.Is(err, profiles.ErrInvalidBundle) {
		t.Errorf("invalid bundle: %v", err)
	}
}

func TestReportCommand(t *testing.T) {
	a, _ := newTestApp(t)
	seed(t, a)

	path := filepath.Join(t.TempDir(), "report.xlsx")
	mustRun(t, a, "report", "-o", path)

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() == 0 {
		t.Error("empty report")
	}
}

func TestCloudCommands_RequireConfiguration(t *testing.T) {
	a, _ := newTestApp(t)
	seed(t, a)

	for _, name := range []string{"backup", "restore", "warehouse"} {
		if err := run(t, a, name); err == nil {
			t.Errorf("%s ran without configuration", name)
		}
	}
	if err := run(t, a, "insight"); !errors.Is(err, insights.ErrNoAPIKey) {
		t.Errorf("insight without key: %v", err)
	}
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}
