package notionsync

import (
	"crypto/sha256"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/finance-assistant/internal/domain"
)

// notionRichTextLimit is Notion's maximum length for a single rich text value.
const notionRichTextLimit = 2000

// NarrativeDocumentKey builds a stable identity for a narrative document
// from its type and period metadata. The key is stored in the Notion page
// title so re-syncs can recognize pages they already created.
func NarrativeDocumentKey(doc domain.NarrativeDocument) string {
	meta := doc.Metadata

	switch {
	case meta.Year != 0 && meta.Month != 0 && meta.Category != "":
		return fmt.Sprintf("%s:%d-%02d:%s", doc.Type, meta.Year, meta.Month, meta.Category)
	case meta.Year != 0 && meta.Month != 0:
		return fmt.Sprintf("%s:%d-%02d", doc.Type, meta.Year, meta.Month)
	case meta.Year != 0 && meta.Category != "":
		return fmt.Sprintf("%s:%d:%s", doc.Type, meta.Year, meta.Category)
	case meta.Year != 0:
		return fmt.Sprintf("%s:%d", doc.Type, meta.Year)
	default:
		// Free-form notes carry no period; key on the text itself.
		sum := sha256.Sum256([]byte(doc.Text))
		return fmt.Sprintf("%s:%x", doc.Type, sum[:8])
	}
}

// NarrativeToNotionProperties converts a narrative document to Notion
// properties for the Narratives database.
func NarrativeToNotionProperties(doc domain.NarrativeDocument, syncedAt time.Time) notionapi.Properties {
	synced := notionapi.Date(syncedAt)

	props := notionapi.Properties{
		"Document Key": notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: NarrativeDocumentKey(doc),
					},
				},
			},
		},
		"Type": notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: string(doc.Type),
			},
		},
		"Narrative": notionapi.RichTextProperty{
			RichText: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: truncate(doc.Text, notionRichTextLimit),
					},
				},
			},
		},
		"Synced At": notionapi.DateProperty{
			Date: &notionapi.DateObject{
				Start: &synced,
			},
		},
	}

	if doc.Metadata.Year != 0 {
		year := float64(doc.Metadata.Year)
		props["Year"] = notionapi.NumberProperty{Number: year}
	}
	if doc.Metadata.Month != 0 {
		month := float64(doc.Metadata.Month)
		props["Month"] = notionapi.NumberProperty{Number: month}
	}
	if doc.Metadata.Category != "" {
		props["Category"] = notionapi.RichTextProperty{
			RichText: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: doc.Metadata.Category,
					},
				},
			},
		}
	}

	return props
}

// truncate cuts s to at most limit bytes without splitting a multi-byte
// rune; narrative text carries currency symbols, so a byte-offset cut can
// land mid-rune.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}
