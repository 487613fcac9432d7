package notionsync

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/jomei/notionapi"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-dashboard/internal/domain"
)

// Property names of the goals database.
const (
	propGoal          = "Goal"
	propGoalID        = "Goal ID"
	propProfile       = "Profile"
	propTarget        = "Target"
	propCurrent       = "Current"
	propProgress      = "Progress"
	propPriority      = "Priority"
	propLinkedAccount = "Linked Account"
	propCreated       = "Created"
	propReached       = "Reached"
)

// GoalToNotionProperties converts a goal and its effective current amount
// to Notion properties. accountName is empty for unlinked goals.
func GoalToNotionProperties(profile string, g domain.SavingsGoal, current decimal.Decimal, accountName string) notionapi.Properties {
	progress := domain.GoalProgress(g.TargetAmount, current)

	props := notionapi.Properties{
		propGoal: notionapi.TitleProperty{
			Title: []notionapi.RichText{richText(g.Name)},
		},
		propGoalID: notionapi.RichTextProperty{
			RichText: []notionapi.RichText{richText(g.ID)},
		},
		propProfile: notionapi.SelectProperty{
			Select: notionapi.Option{Name: profile},
		},
		propTarget: notionapi.NumberProperty{
			Number: g.TargetAmount.InexactFloat64(),
		},
		propCurrent: notionapi.NumberProperty{
			Number: current.InexactFloat64(),
		},
		propProgress: notionapi.NumberProperty{
			Number: progress.Round(1).InexactFloat64(),
		},
		propPriority: notionapi.NumberProperty{
			Number: float64(g.Priority),
		},
		propReached: notionapi.CheckboxProperty{
			Checkbox: progress.GreaterThanOrEqual(decimal.NewFromInt(100)),
		},
	}

	if accountName != "" {
		props[propLinkedAccount] = notionapi.RichTextProperty{
			RichText: []notionapi.RichText{richText(accountName)},
		}
	}

	if !g.CreatedAt.IsZero() {
		props[propCreated] = notionapi.DateProperty{
			Date: &notionapi.DateObject{Start: notionDate(civil.DateOf(g.CreatedAt))},
		}
	}

	return props
}

func richText(s string) notionapi.RichText {
	return notionapi.RichText{
		Type: notionapi.ObjectTypeText,
		Text: &notionapi.Text{Content: s},
	}
}

func notionDate(d civil.Date) *notionapi.Date {
	nd := notionapi.Date(time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC))
	return &nd
}

// extractGoalID reads the Goal ID property of a queried page.
func extractGoalID(page notionapi.Page) string {
	if prop, ok := page.Properties[propGoalID]; ok {
		if rt, ok := prop.(*notionapi.RichTextProperty); ok && len(rt.RichText) > 0 {
			return rt.RichText[0].PlainText
		}
	}
	return ""
}
