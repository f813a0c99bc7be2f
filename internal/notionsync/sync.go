package notionsync

import (
	"context"
	"fmt"
	"time"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/finance-assistant/internal/domain"
	"github.com/dvloznov/finance-assistant/internal/logger"
)

// SyncNarratives mirrors a set of generated narrative documents into a
// Notion database, one page per document key. The sync is idempotent:
// pages whose key is no longer in the generated set are archived, missing
// keys are created, keys whose narrative text changed since the last sync
// are updated in place, and unchanged keys are skipped.
func SyncNarratives(ctx context.Context, docs []domain.NarrativeDocument, notionClient NotionService, notionDBID string, dryRun bool) error {
	log := logger.FromContext(ctx)

	log.Info().
		Int("document_count", len(docs)).
		Bool("dry_run", dryRun).
		Msg("Starting narrative sync to Notion")

	// Build set of valid document keys from the generated set
	validKeys := make(map[string]bool)
	for _, doc := range docs {
		validKeys[NarrativeDocumentKey(doc)] = true
	}

	log.Info().Msg("Querying existing narratives from Notion")
	notionPages, err := queryAllNotionPages(ctx, notionClient, notionDBID)
	if err != nil {
		return fmt.Errorf("failed to query Notion pages: %w", err)
	}

	log.Info().Int("notion_page_count", len(notionPages)).Msg("Retrieved existing Notion pages")

	// Build map of existing document keys to their Notion pages
	existingPages := make(map[string]notionapi.Page)
	for _, page := range notionPages {
		key := extractDocumentKey(page)
		if key != "" {
			existingPages[key] = page
		}
	}

	// Archive stale pages, those whose key left the generated set
	var deleted int
	for _, page := range notionPages {
		key := extractDocumentKey(page)

		if key == "" || !validKeys[key] {
			if dryRun {
				log.Info().
					Str("document_key", key).
					Str("page_id", string(page.ID)).
					Msg("[DRY RUN] Would delete stale Notion page")
				deleted++
			} else {
				if err := notionClient.DeletePage(ctx, string(page.ID)); err != nil {
					log.Warn().
						Err(err).
						Str("document_key", key).
						Str("page_id", string(page.ID)).
						Msg("Failed to delete stale Notion page")
					continue
				}
				log.Info().
					Str("document_key", key).
					Str("page_id", string(page.ID)).
					Msg("Deleted stale Notion page")
				deleted++
			}
		}
	}

	if deleted > 0 {
		log.Info().Int("deleted", deleted).Msg("Deleted stale narratives from Notion")
	}

	syncedAt := time.Now().UTC()

	var created, updated, skipped int
	for _, doc := range docs {
		key := NarrativeDocumentKey(doc)

		if page, ok := existingPages[key]; ok {
			if extractNarrativeText(page) == truncate(doc.Text, notionRichTextLimit) {
				skipped++
				continue
			}

			if dryRun {
				log.Info().
					Str("document_key", key).
					Str("page_id", string(page.ID)).
					Msg("[DRY RUN] Would update Notion page with regenerated narrative")
				updated++
				continue
			}

			props := NarrativeToNotionProperties(doc, syncedAt)

			if _, err := notionClient.UpdatePage(ctx, string(page.ID), props); err != nil {
				log.Warn().
					Err(err).
					Str("document_key", key).
					Str("page_id", string(page.ID)).
					Msg("Failed to update Notion page")
				continue
			}
			log.Info().
				Str("document_key", key).
				Str("page_id", string(page.ID)).
				Msg("Updated Notion page with regenerated narrative")
			updated++
			continue
		}

		if dryRun {
			log.Info().
				Str("document_key", key).
				Msg("[DRY RUN] Would create Notion page")
			created++
			continue
		}

		props := NarrativeToNotionProperties(doc, syncedAt)

		page, err := notionClient.CreatePage(ctx, notionDBID, props)
		if err != nil {
			log.Warn().
				Err(err).
				Str("document_key", key).
				Msg("Failed to create Notion page")
			// Continue processing other documents
			continue
		}
		log.Info().
			Str("document_key", key).
			Str("page_id", string(page.ID)).
			Msg("Created Notion page")
		created++
	}

	log.Info().
		Int("deleted", deleted).
		Int("created", created).
		Int("updated", updated).
		Int("skipped", skipped).
		Int("total", len(docs)).
		Msg("Narrative sync completed")

	return nil
}

// queryAllNotionPages queries all pages from a Notion database.
// Handles pagination automatically.
func queryAllNotionPages(ctx context.Context, notionClient NotionService, databaseID string) ([]notionapi.Page, error) {
	var allPages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{
			PageSize: 100,
		}

		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := notionClient.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllNotionPages: %w", err)
		}

		allPages = append(allPages, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return allPages, nil
}

// extractDocumentKey extracts the document key from a Notion page's title.
// Returns empty string if not found.
func extractDocumentKey(page notionapi.Page) string {
	if prop, ok := page.Properties["Document Key"]; ok {
		if title, ok := prop.(*notionapi.TitleProperty); ok {
			if len(title.Title) > 0 {
				return title.Title[0].PlainText
			}
		}
	}
	return ""
}

// extractNarrativeText extracts the synced narrative text from a Notion
// page, for change detection against the regenerated document.
func extractNarrativeText(page notionapi.Page) string {
	if prop, ok := page.Properties["Narrative"]; ok {
		if rt, ok := prop.(*notionapi.RichTextProperty); ok {
			if len(rt.RichText) > 0 {
				return rt.RichText[0].PlainText
			}
		}
	}
	return ""
}
