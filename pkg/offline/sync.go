package offline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/inkmark/inkmark/pkg/models"
	"github.com/inkmark/inkmark/pkg/transport"
)

// ErrNoTransport is returned by sync operations when the coordinator was
// built without a transport.
var ErrNoTransport = errors.New("no transport configured")

// highlightsBlobName is the remote blob holding a book's annotation set.
func highlightsBlobName(bookID models.BookID) string {
	return "highlights-" + bookID.String() + ".json"
}

func operationBlobName(op models.SyncOperation) string {
	return "ops-" + op.ID.String() + ".json"
}

// uploadOperation is the default queue executor: it ships the operation
// payload to the backend as a named blob.
func (c *Coordinator) uploadOperation(ctx context.Context, op models.SyncOperation) error {
	if c.transport == nil {
		return ErrNoTransport
	}
	return c.transport.UploadNamedBlob(ctx, operationBlobName(op), op.Data)
}

// SyncHighlights runs the merge round trip for one book: download the remote
// annotation blob, resolve it against the local set, load the merged result
// into the manager, persist it through the store, and upload the merged
// serialization. A missing remote blob means first sync and merges as empty.
func (c *Coordinator) SyncHighlights(ctx context.Context, bookID models.BookID) error {
	if c.transport == nil {
		return ErrNoTransport
	}

	local := c.manager.GetHighlightsForBook(bookID)

	var remote []*models.Highlight
	data, err := c.transport.DownloadNamedBlob(ctx, highlightsBlobName(bookID))
	switch {
	case errors.Is(err, transport.ErrBlobNotFound):
		// First sync for this book.
	case err != nil:
		return fmt.Errorf("download highlights for book %s: %w", bookID, err)
	default:
		if err := json.Unmarshal(data, &remote); err != nil {
			return fmt.Errorf("decode remote highlights for book %s: %w", bookID, err)
		}
	}

	merged := c.resolver.Resolve(local, remote)
	c.manager.Upsert(merged)

	if c.store != nil {
		for _, h := range merged {
			payload, err := json.Marshal(h)
			if err != nil {
				return fmt.Errorf("encode highlight %s: %w", h.ID, err)
			}
			if err := c.store.Put(ctx, "highlight:"+h.ID.String(), payload, h.BookID.String()); err != nil {
				return fmt.Errorf("persist highlight %s: %w", h.ID, err)
			}
		}
	}

	out, err := c.manager.ExportJSON(bookID)
	if err != nil {
		return fmt.Errorf("export highlights for book %s: %w", bookID, err)
	}
	if err := c.transport.UploadNamedBlob(ctx, highlightsBlobName(bookID), out); err != nil {
		return fmt.Errorf("upload highlights for book %s: %w", bookID, err)
	}

	c.log.Info().
		Stringer("book", bookID).
		Int("local", len(local)).
		Int("remote", len(remote)).
		Int("merged", len(merged)).
		Msg("highlight sync completed")
	return nil
}
