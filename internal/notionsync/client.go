package notionsync

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"
)

// queryPageSize is the largest page Notion returns per query.
const queryPageSize = 100

// GoalsClient reads and writes goal pages through the Notion REST API.
type GoalsClient struct {
	api *notionapi.Client
}

// NewGoalsClient authenticates with an integration token.
func NewGoalsClient(token string) *GoalsClient {
	return &GoalsClient{api: notionapi.NewClient(notionapi.Token(token))}
}

// goalQuery asks for one page of the goals tagged with profile. The
// profile filter runs on Notion's side.
func goalQuery(profile string, cursor notionapi.Cursor) *notionapi.DatabaseQueryRequest {
	return &notionapi.DatabaseQueryRequest{
		Filter: &notionapi.PropertyFilter{
			Property: propProfile,
			Select:   &notionapi.SelectFilterCondition{Equals: profile},
		},
		StartCursor: cursor,
		PageSize:    queryPageSize,
	}
}

// QueryGoalPages returns one page of results for profile, starting at cursor.
func (c *GoalsClient) QueryGoalPages(ctx context.Context, databaseID, profile string, cursor notionapi.Cursor) (*notionapi.DatabaseQueryResponse, error) {
	resp, err := c.api.Database.Query(ctx, notionapi.DatabaseID(databaseID), goalQuery(profile, cursor))
	if err != nil {
		return nil, fmt.Errorf("QueryGoalPages %q: %w", profile, err)
	}
	return resp, nil
}

// CreateGoalPage adds a goal page to the database and returns its ID.
func (c *GoalsClient) CreateGoalPage(ctx context.Context, databaseID string, props notionapi.Properties) (string, error) {
	page, err := c.api.Page.Create(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(databaseID),
		},
		Properties: props,
	})
	if err != nil {
		return "", fmt.Errorf("CreateGoalPage: %w", err)
	}
	return string(page.ID), nil
}

// UpdateGoalPage overwrites the properties of an existing goal page.
func (c *GoalsClient) UpdateGoalPage(ctx context.Context, pageID string, props notionapi.Properties) error {
	if _, err := c.api.Page.Update(ctx, notionapi.PageID(pageID), &notionapi.PageUpdateRequest{Properties: props}); err != nil {
		return fmt.Errorf("UpdateGoalPage %s: %w", pageID, err)
	}
	return nil
}

// ArchivePage moves a page to the trash.
func (c *GoalsClient) ArchivePage(ctx context.Context, pageID string) error {
	if _, err := c.api.Page.Update(ctx, notionapi.PageID(pageID), &notionapi.PageUpdateRequest{Archived: true}); err != nil {
		return fmt.Errorf("ArchivePage %s: %w", pageID, err)
	}
	return nil
}
