package notionsync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jomei/notionapi"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/dvloznov/finance-dashboard/internal/jobs"
	"github.com/dvloznov/finance-dashboard/internal/logger"
)

// mockNotion records calls and serves the pages of the queried profile in
// fixed-size chunks.
type mockNotion struct {
	pages     []notionapi.Page
	pageSize  int
	queries   int
	profiles  []string
	created   []notionapi.Properties
	updated   map[string]notionapi.Properties
	archived  []string
	createErr error
}

func newMockNotion(pages ...notionapi.Page) *mockNotion {
	return &mockNotion{pages: pages, pageSize: 1, updated: make(map[string]notionapi.Properties)}
}

func (m *mockNotion) QueryGoalPages(ctx context.Context, databaseID, profile string, cursor notionapi.Cursor) (*notionapi.DatabaseQueryResponse, error) {
	m.queries++
	m.profiles = append(m.profiles, profile)

	var matching []notionapi.Page
	for _, p := range m.pages {
		if sel, ok := p.Properties[propProfile].(*notionapi.SelectProperty); ok && sel.Select.Name == profile {
			matching = append(matching, p)
		}
	}

	start := 0
	if cursor != "" {
		fmt.Sscanf(string(cursor), "%d", &start)
	}
	end := start + m.pageSize
	if end > len(matching) {
		end = len(matching)
	}
	resp := &notionapi.DatabaseQueryResponse{Results: matching[start:end]}
	if end < len(matching) {
		resp.HasMore = true
		resp.NextCursor = notionapi.Cursor(fmt.Sprintf("%d", end))
	}
	return resp, nil
}

func (m *mockNotion) CreateGoalPage(ctx context.Context, databaseID string, props notionapi.Properties) (string, error) {
	if m.createErr != nil {
		return "", m.createErr
	}
	m.created = append(m.created, props)
	return fmt.Sprintf("new-%d", len(m.created)), nil
}

func (m *mockNotion) UpdateGoalPage(ctx context.Context, pageID string, props notionapi.Properties) error {
	m.updated[pageID] = props
	return nil
}

func (m *mockNotion) ArchivePage(ctx context.Context, pageID string) error {
	m.archived = append(m.archived, pageID)
	return nil
}

func goalPage(pageID, profile, goalID string) notionapi.Page {
	props := notionapi.Properties{
		propProfile: &notionapi.SelectProperty{Select: notionapi.Option{Name: profile}},
	}
	if goalID != "" {
		props[propGoalID] = &notionapi.RichTextProperty{
			RichText: []notionapi.RichText{{PlainText: goalID}},
		}
	}
	return notionapi.Page{ID: notionapi.ObjectID(pageID), Properties: props}
}

func sampleProfile() *domain.ProfileData {
	p := domain.NewProfileData()
	p.Accounts = []domain.SavingsAccount{{ID: "acc", Name: "ISA", Amount: decimal.NewFromInt(1000)}}
	p.Goals = []domain.SavingsGoal{
		{ID: "g1", Name: "Car", TargetAmount: decimal.NewFromInt(600), LinkedAccountID: "acc", Priority: 0,
			CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)},
		{ID: "g2", Name: "Trip", TargetAmount: decimal.NewFromInt(600), LinkedAccountID: "acc", Priority: 1},
		{ID: "g3", Name: "Laptop", TargetAmount: decimal.NewFromInt(1500), CurrentAmount: decimal.NewFromInt(300)},
	}
	return p
}

func TestGoalToNotionProperties(t *testing.T) {
	g := sampleProfile().Goals[0]
	props := GoalToNotionProperties("Personal", g, decimal.NewFromInt(600), "ISA")

	title := props[propGoal].(notionapi.TitleProperty)
	if title.Title[0].Text.Content != "Car" {
		t.Errorf("title = %q", title.Title[0].Text.Content)
	}
	if props[propProfile].(notionapi.SelectProperty).Select.Name != "Personal" {
		t.Error("profile select not set")
	}
	if props[propProgress].(notionapi.NumberProperty).Number != 100 {
		t.Errorf("progress = %v", props[propProgress])
	}
	if !props[propReached].(notionapi.CheckboxProperty).Checkbox {
		t.Error("fully funded goal must be marked reached")
	}
	if _, ok := props[propCreated]; !ok {
		t.Error("created date missing")
	}

	unlinked := GoalToNotionProperties("Personal", sampleProfile().Goals[2], decimal.NewFromInt(300), "")
	if _, ok := unlinked[propLinkedAccount]; ok {
		t.Error("unlinked goal must not carry an account")
	}
	if unlinked[propProgress].(notionapi.NumberProperty).Number != 20 {
		t.Errorf("progress = %v, want 20", unlinked[propProgress])
	}
}

func TestGoalQuery_FiltersByProfile(t *testing.T) {
	req := goalQuery("Personal", "abc")

	f, ok := req.Filter.(*notionapi.PropertyFilter)
	if !ok {
		t.Fatalf("filter = %T, want *PropertyFilter", req.Filter)
	}
	if f.Property != propProfile || f.Select == nil || f.Select.Equals != "Personal" {
		t.Errorf("filter = %+v", f)
	}
	if req.StartCursor != "abc" || req.PageSize != queryPageSize {
		t.Errorf("cursor = %q, page size = %d", req.StartCursor, req.PageSize)
	}
}

func TestSyncGoals(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := logger.WithContext(context.Background(), logger.NewWithWriter(buf, "debug"))

	notion := newMockNotion(
		goalPage("p1", "Personal", "g1"),      // update
		goalPage("p2", "Personal", "deleted"), // archive
		goalPage("p3", "Personal", ""),        // archive, no ID
		goalPage("p4", "Business", "g2"),      // other profile, untouched
		goalPage("p5", "Personal", "g1"),      // duplicate, archive
	)

	result, err := SyncGoals(ctx, notion, "db", "Personal", sampleProfile(), false)
	if err != nil {
		t.Fatalf("SyncGoals: %v", err)
	}

	want := SyncResult{Created: 2, Updated: 1, Archived: 3}
	if result != want {
		t.Errorf("result = %+v, want %+v", result, want)
	}
	if notion.queries != 4 {
		t.Errorf("queries = %d, want 4 (paginated)", notion.queries)
	}
	for _, p := range notion.profiles {
		if p != "Personal" {
			t.Errorf("queried profile %q, want Personal", p)
		}
	}
	if _, ok := notion.updated["p1"]; !ok {
		t.Error("p1 not updated")
	}
	for _, id := range notion.archived {
		if id == "p4" {
			t.Error("page of another profile archived")
		}
	}

	// Trip is second in priority and gets the remaining 400 of the account.
	trip := notion.created[0]
	if trip[propCurrent].(notionapi.NumberProperty).Number != 400 {
		t.Errorf("trip current = %v", trip[propCurrent])
	}
}

func TestSyncGoals_DryRun(t *testing.T) {
	notion := newMockNotion(goalPage("p1", "Personal", "g1"), goalPage("p2", "Personal", "gone"))

	result, err := SyncGoals(context.Background(), notion, "db", "Personal", sampleProfile(), true)
	if err != nil {
		t.Fatal(err)
	}
	if result.Created != 2 || result.Updated != 1 || result.Archived != 1 {
		t.Errorf("result = %+v", result)
	}
	if len(notion.created) != 0 || len(notion.updated) != 0 || len(notion.archived) != 0 {
		t.Error("dry run wrote to Notion")
	}
}

type mockLoader struct{ data *domain.ProfileData }

func (m mockLoader) Load(ctx context.Context, name string) (*domain.ProfileData, error) {
	if m.data == nil {
		return nil, domain.ErrNotFound
	}
	return m.data, nil
}

func TestJobHandler(t *testing.T) {
	notion := newMockNotion()
	notion.createErr = errors.New("rate limited")

	handler := NewJobHandler(mockLoader{data: sampleProfile()}, notion, "db")
	result, err := handler(context.Background(), &jobs.Job{Type: jobs.JobTypeNotionSync, Profile: "Personal"})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if result != "created=0 updated=0 archived=0 failed=3" {
		t.Errorf("result = %q", result)
	}

	missing := NewJobHandler(mockLoader{}, notion, "db")
	if _, err := missing(context.Background(), &jobs.Job{Profile: "x"}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}
