package notionsync

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/dvloznov/finance-dashboard/internal/jobs"
	"github.com/dvloznov/finance-dashboard/internal/logger"
)

// SyncResult counts what a sync changed.
type SyncResult struct {
	Created  int `json:"created"`
	Updated  int `json:"updated"`
	Archived int `json:"archived"`
	Failed   int `json:"failed"`
}

func (r SyncResult) String() string {
	return fmt.Sprintf("created=%d updated=%d archived=%d failed=%d", r.Created, r.Updated, r.Archived, r.Failed)
}

// SyncGoals mirrors the goals of one profile into a Notion database:
// 1. Queries the pages tagged with the profile
// 2. Archives pages whose goal no longer exists, and duplicates
// 3. Updates pages of existing goals and creates the missing ones
//
// Pages belonging to other profiles are never queried. Per-page failures
// are logged and counted; only a failed query aborts the sync.
func SyncGoals(ctx context.Context, notionClient GoalPages, notionDBID, profile string, data *domain.ProfileData, dryRun bool) (SyncResult, error) {
	log := logger.ForProfile(logger.FromContext(ctx), profile)
	var result SyncResult

	log.Info().
		Int("goal_count", len(data.Goals)).
		Bool("dry_run", dryRun).
		Msg("Starting goal sync to Notion")

	pages, err := queryGoalPages(ctx, notionClient, notionDBID, profile)
	if err != nil {
		return result, fmt.Errorf("failed to query Notion pages: %w", err)
	}

	validGoalIDs := make(map[string]bool, len(data.Goals))
	for _, g := range data.Goals {
		validGoalIDs[g.ID] = true
	}

	pageByGoal := make(map[string]string)
	for _, page := range pages {
		goalID := extractGoalID(page)
		if goalID != "" && validGoalIDs[goalID] {
			if _, dup := pageByGoal[goalID]; !dup {
				pageByGoal[goalID] = string(page.ID)
				continue
			}
		}

		if dryRun {
			log.Info().Str("goal_id", goalID).Str("page_id", string(page.ID)).Msg("[DRY RUN] Would archive stale Notion page")
			result.Archived++
			continue
		}
		if err := notionClient.ArchivePage(ctx, string(page.ID)); err != nil {
			log.Warn().Err(err).Str("page_id", string(page.ID)).Msg("Failed to archive stale Notion page")
			result.Failed++
			continue
		}
		result.Archived++
	}

	effective := data.EffectiveGoalAmounts()
	accountNames := make(map[string]string, len(data.Accounts))
	for _, a := range data.Accounts {
		accountNames[a.ID] = a.Name
	}

	for _, g := range data.Goals {
		props := GoalToNotionProperties(profile, g, effective[g.ID], accountNames[g.LinkedAccountID])
		pageID, exists := pageByGoal[g.ID]

		if dryRun {
			if exists {
				log.Info().Str("goal_id", g.ID).Str("page_id", pageID).Msg("[DRY RUN] Would update Notion page")
				result.Updated++
			} else {
				log.Info().Str("goal_id", g.ID).Msg("[DRY RUN] Would create Notion page")
				result.Created++
			}
			continue
		}

		if exists {
			if err := notionClient.UpdateGoalPage(ctx, pageID, props); err != nil {
				log.Warn().Err(err).Str("goal_id", g.ID).Str("page_id", pageID).Msg("Failed to update Notion page")
				result.Failed++
				continue
			}
			result.Updated++
			continue
		}

		newID, err := notionClient.CreateGoalPage(ctx, notionDBID, props)
		if err != nil {
			log.Warn().Err(err).Str("goal_id", g.ID).Msg("Failed to create Notion page")
			result.Failed++
			continue
		}
		log.Debug().Str("goal_id", g.ID).Str("page_id", newID).Msg("Created Notion page")
		result.Created++
	}

	log.Info().
		Int("created", result.Created).
		Int("updated", result.Updated).
		Int("archived", result.Archived).
		Int("failed", result.Failed).
		Msg("Goal sync completed")

	return result, nil
}

// queryGoalPages follows the cursor until every goal page of profile is read.
func queryGoalPages(ctx context.Context, notionClient GoalPages, databaseID, profile string) ([]notionapi.Page, error) {
	var pages []notionapi.Page
	var cursor notionapi.Cursor
	for {
		resp, err := notionClient.QueryGoalPages(ctx, databaseID, profile, cursor)
		if err != nil {
			return nil, err
		}
		pages = append(pages, resp.Results...)
		if !resp.HasMore || resp.NextCursor == "" {
			return pages, nil
		}
		cursor = resp.NextCursor
	}
}

// ProfileLoader reads a stored profile.
type ProfileLoader interface {
	Load(ctx context.Context, name string) (*domain.ProfileData, error)
}

// NewJobHandler returns the jobs.JobHandler for JobTypeNotionSync. The job
// param "dry_run" set to "true" previews the changes.
func NewJobHandler(profiles ProfileLoader, notionClient GoalPages, notionDBID string) jobs.JobHandler {
	return func(ctx context.Context, job *jobs.Job) (string, error) {
		data, err := profiles.Load(ctx, job.Profile)
		if err != nil {
			return "", fmt.Errorf("notion sync: %w", err)
		}
		result, err := SyncGoals(ctx, notionClient, notionDBID, job.Profile, data, job.Param("dry_run") == "true")
		if err != nil {
			return "", err
		}
		return result.String(), nil
	}
}
