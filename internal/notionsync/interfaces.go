// Package notionsync mirrors savings goals into a Notion database.
package notionsync

import (
	"context"

	"github.com/jomei/notionapi"
)

// GoalPages is the part of Notion the goal sync needs. GoalsClient
// implements it; tests use a fake.
type GoalPages interface {
	// QueryGoalPages returns one page of the goal pages tagged with profile.
	QueryGoalPages(ctx context.Context, databaseID, profile string, cursor notionapi.Cursor) (*notionapi.DatabaseQueryResponse, error)
	CreateGoalPage(ctx context.Context, databaseID string, props notionapi.Properties) (string, error)
	UpdateGoalPage(ctx context.Context, pageID string, props notionapi.Properties) error
	ArchivePage(ctx context.Context, pageID string) error
}

var _ GoalPages = (*GoalsClient)(nil)
