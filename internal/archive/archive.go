package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"

	"github.com/dvloznov/finance-assistant/internal/domain"
)

// Snapshot is one archived narrative generation: everything that was
// produced for a year, written as a single JSON object. Snapshots are
// derived artifacts; the ledger stays the only source of truth, so losing
// one costs nothing beyond a regeneration.
type Snapshot struct {
	Year        int                        `json:"year"`
	GeneratedAt time.Time                  `json:"generated_at"`
	Documents   []domain.NarrativeDocument `json:"documents"`
}

// Archiver writes narrative snapshots to a GCS bucket and reads them back.
// It assumes Application Default Credentials are configured (gcloud auth
// application-default login).
type Archiver struct {
	bucket string
}

// NewArchiver creates an Archiver targeting the given bucket.
func NewArchiver(bucket string) *Archiver {
	return &Archiver{bucket: bucket}
}

// Upload serializes the generated documents for a year and uploads them to
// narratives/<year>/<timestamp>-<id>.json. It returns the gs:// URI of the
// written object.
func (a *Archiver) Upload(ctx context.Context, year int, docs []domain.NarrativeDocument) (string, error) {
	snap := Snapshot{
		Year:        year,
		GeneratedAt: time.Now().UTC(),
		Documents:   docs,
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("Upload: marshaling snapshot: %w", err)
	}

	objectName := fmt.Sprintf("narratives/%d/%s-%s.json",
		year,
		snap.GeneratedAt.Format("20060102T150405Z"),
		uuid.New().String()[:8],
	)

	client, err := storage.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("Upload: create storage client: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := client.Bucket(a.bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("Upload: writing object: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("Upload: finalize upload: %w", err)
	}

	return fmt.Sprintf("gs://%s/%s", a.bucket, objectName), nil
}

// Fetch downloads and decodes the snapshot at the given GCS URI.
func (a *Archiver) Fetch(ctx context.Context, gcsURI string) (*Snapshot, error) {
	bucketName, objectPath, err := splitGCSURI(gcsURI)
	if err != nil {
		return nil, err
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("Fetch: create storage client: %w", err)
	}
	defer client.Close()

	rc, err := client.Bucket(bucketName).Object(objectPath).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("Fetch: reading object %s/%s: %w", bucketName, objectPath, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("Fetch: reading object bytes: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("Fetch: decoding snapshot: %w", err)
	}

	return &snap, nil
}

// splitGCSURI splits gs://bucket/path/to/object.json into bucket and path.
func splitGCSURI(gcsURI string) (string, string, error) {
	if !strings.HasPrefix(gcsURI, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", gcsURI)
	}

	trimmed := strings.TrimPrefix(gcsURI, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", gcsURI)
	}

	return parts[0], parts[1], nil
}
