package sink

import (
	"context"
	"fmt"
	"os"
	"sync"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"

	"github.com/suno-tools/sunograb/internal/run"
	"github.com/suno-tools/sunograb/internal/store"
)

// The Firestore client is process-wide and constructed at most once,
// then passed into each sink explicitly. Never reached through ambient
// global state by callers.
var (
	fsOnce   sync.Once
	fsClient *firestore.Client
	fsErr    error
)

// firestoreClient is the guarded factory. A missing credentials file is
// the one prerequisite that aborts a run before any account is touched,
// so it is checked before dialing anything.
func firestoreClient(ctx context.Context, credsFile, projectID string) (*firestore.Client, error) {
	if _, err := os.Stat(credsFile); err != nil {
		return nil, fmt.Errorf("firestore credentials: %w", err)
	}
	fsOnce.Do(func() {
		fsClient, fsErr = firestore.NewClient(ctx, projectID, option.WithCredentialsFile(credsFile))
	})
	return fsClient, fsErr
}

// DocSink upserts one document per successful account into a Firestore
// collection.
type DocSink struct {
	client     *firestore.Client
	collection string
}

// NewDocSink builds the sink, constructing the shared client on first
// use. Call this before processing accounts: its failure is the only
// pre-run abort.
func NewDocSink(ctx context.Context, credsFile, projectID string) (*DocSink, error) {
	client, err := firestoreClient(ctx, credsFile, projectID)
	if err != nil {
		return nil, err
	}
	return &DocSink{client: client, collection: "sessions"}, nil
}

// Upsert merge-writes one document per successful result, keyed by the
// sanitized email, with a server-assigned timestamp. Failed results are
// skipped.
func (s *DocSink) Upsert(ctx context.Context, results []run.Result) error {
	for _, r := range results {
		if !r.Success {
			continue
		}
		doc := map[string]interface{}{
			"email":      store.SanitizeEmail(r.Email),
			"token":      r.Token,
			"updated_at": firestore.ServerTimestamp,
		}
		if r.Credits != nil {
			doc["credits"] = *r.Credits
		}
		if r.Tier != nil {
			doc["tier"] = *r.Tier
		}

		ref := s.client.Collection(s.collection).Doc(store.SanitizeEmail(r.Email))
		if _, err := ref.Set(ctx, doc, firestore.MergeAll); err != nil {
			return fmt.Errorf("upsert %s: %w", store.SanitizeEmail(r.Email), err)
		}
	}
	return nil
}

// Close releases the sink's client.
func (s *DocSink) Close() error { return s.client.Close() }
