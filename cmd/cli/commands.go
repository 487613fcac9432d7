package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-dashboard/internal/backup"
	"github.com/dvloznov/finance-dashboard/internal/calendar"
	"github.com/dvloznov/finance-dashboard/internal/domain"
	infraBQ "github.com/dvloznov/finance-dashboard/internal/infra/bigquery"
	"github.com/dvloznov/finance-dashboard/internal/insights"
	"github.com/dvloznov/finance-dashboard/internal/logger"
	"github.com/dvloznov/finance-dashboard/internal/profiles"
	"github.com/dvloznov/finance-dashboard/internal/projection"
	"github.com/dvloznov/finance-dashboard/internal/report"
)

// scope holds the flags shared by every command that reads one profile.
type scope struct {
	profile string
	asOf    string
}

func scopeFlags(fs *flag.FlagSet) *scope {
	s := &scope{}
	fs.StringVar(&s.profile, "profile", "", "Profile name (defaults to the active profile)")
	fs.StringVar(&s.asOf, "as-of", "", "Evaluate as of this date, YYYY-MM-DD (defaults to today)")
	return s
}

// view is one loaded profile together with its evaluation date.
type view struct {
	name     string
	data     *domain.ProfileData
	today    civil.Date
	settings domain.Settings
	money    amountFormatter
}

func (a *app) load(ctx context.Context, s *scope) (*view, error) {
	today := a.today()
	if s.asOf != "" {
		d, err := domain.ParseDate(s.asOf)
		if err != nil {
			return nil, fmt.Errorf("-as-of: %w", err)
		}
		today = d
	}

	name, err := a.repo.Resolve(ctx, s.profile)
	if err != nil {
		return nil, err
	}
	data, err := a.repo.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	settings, err := a.repo.Settings(ctx)
	if err != nil {
		return nil, err
	}
	return &view{
		name:     name,
		data:     data,
		today:    today,
		settings: settings,
		money:    amountFormatter{settings: settings},
	}, nil
}

func newFlagSet(name string) *flag.FlagSet {
	return flag.NewFlagSet(name, flag.ContinueOnError)
}

func runProfiles(ctx context.Context, a *app, args []string) error {
	action := "list"
	if len(args) > 0 {
		action, args = args[0], args[1:]
	}

	switch action {
	case "list":
		return listProfiles(ctx, a)
	case "create":
		if len(args) != 1 {
			return errors.New("usage: cli profiles create NAME")
		}
		if err := a.repo.Create(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Created profile %s\n", args[0])
	case "delete":
		if len(args) != 1 {
			return errors.New("usage: cli profiles delete NAME")
		}
		if err := a.repo.Delete(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Deleted profile %s\n", args[0])
	case "use":
		if len(args) != 1 {
			return errors.New("usage: cli profiles use NAME")
		}
		if err := a.repo.SetActive(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Active profile is now %s\n", args[0])
	case "set-balance":
		if len(args) != 2 {
			return errors.New("usage: cli profiles set-balance NAME AMOUNT")
		}
		amount, err := decimal.NewFromString(args[1])
		if err != nil {
			return fmt.Errorf("amount: %w", err)
		}
		_, err = a.repo.Update(ctx, args[0], func(p *domain.ProfileData) error {
			p.SetCurrentBalance(amount)
			return nil
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Balance of %s set to %s\n", args[0], amount)
	default:
		return fmt.Errorf("unknown profiles action %q (list, create, delete, use, set-balance)", action)
	}
	return nil
}

func listProfiles(ctx context.Context, a *app) error {
	names, err := a.repo.List(ctx)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Fprintln(a.out, muted("No profiles yet. Create one with 'cli profiles create NAME'."))
		return nil
	}
	active, err := a.repo.Active(ctx)
	if err != nil {
		return err
	}
	settings, err := a.repo.Settings(ctx)
	if err != nil {
		return err
	}
	money := amountFormatter{settings: settings}

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		data, err := a.repo.Load(ctx, name)
		if err != nil {
			return err
		}
		marker := ""
		if name == active {
			marker = "*"
		}
		rows = append(rows, []string{
			marker,
			name,
			money.format(data.CurrentBalance),
			strconv.Itoa(len(data.Transactions)),
			strconv.Itoa(len(data.Goals)),
			strconv.Itoa(len(data.Accounts)),
		})
	}
	fmt.Fprintln(a.out, renderTable([]string{"", "Profile", "Balance", "Transactions", "Goals", "Accounts"}, rows))
	return nil
}

func runBalance(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("balance")
	s := scopeFlags(fs)
	monthStr := fs.String("month", "", "Month to show, YYYY-MM (defaults to the as-of month)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	v, err := a.load(ctx, s)
	if err != nil {
		return err
	}
	m := calendar.MonthOf(v.today)
	if *monthStr != "" {
		if m, err = calendar.ParseMonth(*monthStr); err != nil {
			return err
		}
	}

	if err := projection.CheckBalanceMonth(m, v.today); err != nil {
		return err
	}

	days := projection.ProjectMonthBalances(v.data, m, v.today)
	rows := make([][]string, 0, len(days))
	for _, d := range days {
		marker := ""
		switch {
		case d.Date == v.today:
			marker = "today"
		case d.HasChange:
			marker = "*"
		}
		rows = append(rows, []string{d.Date.String(), v.money.format(d.Balance), marker})
	}

	fmt.Fprintln(a.out, title(fmt.Sprintf("Balance of %s, %s", v.name, m.Label())))
	fmt.Fprintln(a.out, renderTable([]string{"Date", "Balance", ""}, rows))
	return nil
}

func runCashflow(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("cashflow")
	s := scopeFlags(fs)
	months := fs.Int("months", projection.DefaultCashflowWindow, "Number of months ending at the as-of month")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *months <= 0 {
		return errors.New("-months must be positive")
	}

	v, err := a.load(ctx, s)
	if err != nil {
		return err
	}

	totals := projection.MonthlyTotals(v.data.Transactions, v.today, *months)
	rows := make([][]string, 0, len(totals))
	for _, t := range totals {
		rows = append(rows, []string{t.Label, v.money.format(t.Income), v.money.format(t.Expenses), v.money.format(t.Income.Sub(t.Expenses))})
	}

	flows := projection.RecurringFlows(v.data.Transactions, v.today)
	fmt.Fprintln(a.out, title("Cashflow of "+v.name))
	fmt.Fprintln(a.out, renderTable([]string{"Month", "Income", "Outgoings", "Net"}, rows))
	fmt.Fprintf(a.out, "Net monthly savings: %s\n", v.money.format(flows.Net()))
	return nil
}

func runDebt(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("debt")
	s := scopeFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	v, err := a.load(ctx, s)
	if err != nil {
		return err
	}

	points := projection.ProjectPayoff(v.data.Transactions, v.today)
	if len(points) == 0 {
		fmt.Fprintln(a.out, muted("No installment payments."))
		return nil
	}
	rows := make([][]string, 0, len(points))
	for _, p := range points {
		rows = append(rows, []string{p.Label, v.money.format(p.RemainingDebt)})
	}

	fmt.Fprintln(a.out, title("Debt payoff of "+v.name))
	fmt.Fprintln(a.out, renderTable([]string{"Month", "Remaining"}, rows))
	if last := points[len(points)-1]; last.RemainingDebt.IsZero() {
		fmt.Fprintf(a.out, "Debt free in %s\n", last.Label)
	}
	return nil
}

func runGoals(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("goals")
	s := scopeFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	v, err := a.load(ctx, s)
	if err != nil {
		return err
	}
	if len(v.data.Goals) == 0 {
		fmt.Fprintln(a.out, muted("No savings goals."))
		return nil
	}

	accounts := make(map[string]string, len(v.data.Accounts))
	for _, acc := range v.data.Accounts {
		accounts[acc.ID] = acc.Name
	}
	effective := v.data.EffectiveGoalAmounts()

	rows := make([][]string, 0, len(v.data.Goals))
	for _, g := range v.data.Goals {
		current := effective[g.ID]
		rows = append(rows, []string{
			g.Name,
			v.money.format(current),
			v.money.format(g.TargetAmount),
			domain.GoalProgress(g.TargetAmount, current).StringFixed(1) + "%",
			accounts[g.LinkedAccountID],
		})
	}
	fmt.Fprintln(a.out, title("Savings goals of "+v.name))
	fmt.Fprintln(a.out, renderTable([]string{"Goal", "Saved", "Target", "Progress", "Account"}, rows))

	proj := projection.ProjectGoalPayoff(v.data.Goals, v.data.Transactions, v.today)
	switch {
	case !proj.Reachable:
		fmt.Fprintf(a.out, "Not reachable with net monthly savings of %s\n", v.money.format(proj.NetMonthlySavings))
	case len(proj.Points) == 0:
		fmt.Fprintln(a.out, "Nothing left to save.")
	default:
		last := proj.Points[len(proj.Points)-1]
		fmt.Fprintf(a.out, "All goals reached in %s (%s)\n", last.Label, plural(len(proj.Points)-1, "month"))
	}
	return nil
}

func runUpcoming(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("upcoming")
	s := scopeFlags(fs)
	monthStr := fs.String("month", "", "Month to list, YYYY-MM (defaults to the as-of month)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	v, err := a.load(ctx, s)
	if err != nil {
		return err
	}
	m := calendar.MonthOf(v.today)
	if *monthStr != "" {
		if m, err = calendar.ParseMonth(*monthStr); err != nil {
			return err
		}
	}

	payments := projection.UpcomingPayments(v.data.Transactions, m)
	if len(payments) == 0 {
		fmt.Fprintf(a.out, "%s\n", muted("No payments due in "+m.Label()+"."))
		return nil
	}
	rows := make([][]string, 0, len(payments))
	total := decimal.Zero
	for _, p := range payments {
		rows = append(rows, []string{p.Date.String(), p.Name, v.money.format(p.Amount), string(p.Recurrence), string(p.Status)})
		total = total.Add(p.Amount)
	}
	fmt.Fprintln(a.out, title(fmt.Sprintf("Payments due in %s", m.Label())))
	fmt.Fprintln(a.out, renderTable([]string{"Date", "Payment", "Amount", "Recurrence", "Status"}, rows))
	fmt.Fprintf(a.out, "Total: %s\n", v.money.format(total))
	return nil
}

func runExport(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("export")
	output := fs.String("o", "", "Output file (defaults to stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	b, err := a.repo.Export(ctx)
	if err != nil {
		return err
	}
	raw, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("encode bundle: %w", err)
	}

	if *output == "" {
		_, err = fmt.Fprintln(a.out, string(raw))
		return err
	}
	if err := os.WriteFile(*output, raw, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", *output, err)
	}
	fmt.Fprintf(a.out, "Exported %s to %s\n", plural(len(b.Profiles), "profile"), *output)
	return nil
}

func runImport(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("import")
	input := fs.String("i", "", "Bundle file to import, - for stdin (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *input == "" {
		return errors.New("-i is required")
	}

	var (
		raw []byte
		err error
	)
	if *input == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(*input)
	}
	if err != nil {
		return fmt.Errorf("read bundle: %w", err)
	}

	b, err := profiles.ParseBundle(logger.WithContext(ctx, a.log), raw)
	if err != nil {
		return err
	}
	if err := a.repo.Import(ctx, b); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Imported %s, active profile %s\n", plural(len(b.Profiles), "profile"), b.ActiveProfile)
	return nil
}

// backups opens the Cloud Storage backup service.
func (a *app) backups(ctx context.Context) (*backup.Service, func(), error) {
	if a.cfg.GCSBucket == "" {
		return nil, nil, errors.New("GCS_BUCKET is not configured")
	}
	store, err := backup.NewGCSStore(ctx, a.cfg.GCSBucket)
	if err != nil {
		return nil, nil, err
	}
	return backup.NewService(a.repo, store), func() { store.Close() }, nil
}

func runBackup(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("backup")
	list := fs.Bool("list", false, "List existing backups instead of creating one")
	if err := fs.Parse(args); err != nil {
		return err
	}

	svc, closeFn, err := a.backups(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	if *list {
		names, err := svc.List(ctx)
		if err != nil {
			return err
		}
		for _, n := range names {
			fmt.Fprintln(a.out, n)
		}
		return nil
	}

	name, err := svc.Backup(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Uploaded gs://%s/%s\n", a.cfg.GCSBucket, name)
	return nil
}

func runRestore(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("restore")
	name := fs.String("name", "", "Backup object to restore (defaults to the newest)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	svc, closeFn, err := a.backups(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	restored, err := svc.Restore(ctx, *name)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Restored %s\n", restored)
	return nil
}

func runReport(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("report")
	s := scopeFlags(fs)
	output := fs.String("o", "", "Output file (defaults to <profile>-<date>.xlsx)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	v, err := a.load(ctx, s)
	if err != nil {
		return err
	}
	path := *output
	if path == "" {
		path = fmt.Sprintf("%s-%s.xlsx", v.name, v.today)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := report.Write(f, v.name, v.data, v.settings, v.today); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	fmt.Fprintf(a.out, "Wrote %s\n", path)
	return nil
}

func runWarehouse(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("warehouse")
	s := scopeFlags(fs)
	list := fs.Bool("list", false, "List past exports of the profile instead of exporting")
	limit := fs.Int("limit", 20, "Number of past exports to list")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if a.cfg.BQProject == "" {
		return errors.New("BQ_PROJECT is not configured")
	}

	v, err := a.load(ctx, s)
	if err != nil {
		return err
	}

	repo, err := infraBQ.NewRepository(ctx, a.cfg.BQProject, a.cfg.BQDataset)
	if err != nil {
		return err
	}
	defer repo.Close()

	if *list {
		exports, err := repo.ListExports(ctx, v.name, *limit)
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(exports))
		for _, e := range exports {
			rows = append(rows, []string{e.ExportID, e.ExportedAt.Format("2006-01-02 15:04"), e.AsOf.String()})
		}
		fmt.Fprintln(a.out, renderTable([]string{"Export", "Exported at", "As of"}, rows))
		return nil
	}

	if err := repo.EnsureTables(ctx); err != nil {
		return err
	}
	exportID, err := repo.Export(ctx, v.name, v.data, v.today)
	if err != nil {
		return err
	}
	logger.ForProfile(a.log, v.name).Info().Str("export_id", exportID).Msg("Warehouse export written")
	fmt.Fprintf(a.out, "Exported %s to %s.%s as %s\n", v.name, a.cfg.BQProject, a.cfg.BQDataset, exportID)
	return nil
}

func runInsight(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("insight")
	s := scopeFlags(fs)
	language := fs.String("language", "", "Language code of the summary (defaults to the settings)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	v, err := a.load(ctx, s)
	if err != nil {
		return err
	}

	svc := insights.NewService(a.repo, func(ctx context.Context, apiKey string) (insights.Summarizer, error) {
		return insights.NewGeminiSummarizer(ctx, apiKey, a.cfg.GeminiModel)
	}, a.cfg.GeminiAPIKey, a.today)

	text, err := svc.Summarize(ctx, v.name, v.today, *language)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, title("Summary of "+v.name))
	fmt.Fprintln(a.out, text)
	return nil
}
