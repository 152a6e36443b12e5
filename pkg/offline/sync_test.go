package offline

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkmark/inkmark/pkg/highlights"
	"github.com/inkmark/inkmark/pkg/models"
	"github.com/inkmark/inkmark/pkg/store"
	"github.com/inkmark/inkmark/pkg/transport"
)

// memTransport is an in-memory blob backend.
type memTransport struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newMemTransport() *memTransport {
	return &memTransport{blobs: make(map[string][]byte)}
}

func (m *memTransport) UploadNamedBlob(_ context.Context, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[name] = append([]byte(nil), data...)
	return nil
}

func (m *memTransport) DownloadNamedBlob(_ context.Context, name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[name]
	if !ok {
		return nil, transport.ErrBlobNotFound
	}
	return append([]byte(nil), data...), nil
}

func (m *memTransport) ListNamedBlobs(_ context.Context) ([]transport.BlobInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	infos := make([]transport.BlobInfo, 0, len(m.blobs))
	for name, data := range m.blobs {
		infos = append(infos, transport.BlobInfo{Name: name, Size: int64(len(data))})
	}
	return infos, nil
}

func fallbackOnly(text string) models.Position {
	return models.Position{
		Fallback:   models.Fallback{TextContent: text},
		Confidence: models.ConfidenceFallback,
	}
}

// exportedSet serializes a manager's highlights the way a peer device would
// have uploaded them.
func exportedSet(t *testing.T, bookID models.BookID, texts ...string) ([]byte, []*models.Highlight) {
	t.Helper()
	m := highlights.NewManager(zerolog.Nop())
	for _, text := range texts {
		_, err := m.CreateHighlight(text, fallbackOnly(text), models.ColorBlue, models.PlatformMobile, bookID, nil)
		require.NoError(t, err)
	}
	data, err := m.ExportJSON(bookID)
	require.NoError(t, err)
	return data, m.GetHighlightsForBook(bookID)
}

func TestSyncHighlightsFirstSync(t *testing.T) {
	tr := newMemTransport()
	c := New(Config{Transport: tr})
	t.Cleanup(c.Close)

	bookID := models.NewBookID()
	_, err := c.Manager().CreateHighlight("local note", fallbackOnly("local note"), models.ColorYellow, models.PlatformWeb, bookID, nil)
	require.NoError(t, err)

	require.NoError(t, c.SyncHighlights(context.Background(), bookID))

	uploaded, ok := tr.blobs[highlightsBlobName(bookID)]
	require.True(t, ok, "merged set uploaded")

	var roundTrip []*models.Highlight
	require.NoError(t, json.Unmarshal(uploaded, &roundTrip))
	require.Len(t, roundTrip, 1)
	assert.Equal(t, "local note", roundTrip[0].Text)
}

func TestSyncHighlightsMergesRemote(t *testing.T) {
	tr := newMemTransport()
	st := store.NewMemory()
	c := New(Config{Transport: tr, Store: st})
	t.Cleanup(c.Close)

	bookID := models.NewBookID()
	remoteBlob, remoteSet := exportedSet(t, bookID, "remote capture")
	tr.blobs[highlightsBlobName(bookID)] = remoteBlob

	_, err := c.Manager().CreateHighlight("local capture", fallbackOnly("local capture"), models.ColorYellow, models.PlatformWeb, bookID, nil)
	require.NoError(t, err)

	require.NoError(t, c.SyncHighlights(context.Background(), bookID))

	merged := c.Manager().GetHighlightsForBook(bookID)
	require.Len(t, merged, 2, "local and remote both present after merge")

	texts := map[string]bool{}
	for _, h := range merged {
		texts[h.Text] = true
	}
	assert.True(t, texts["local capture"])
	assert.True(t, texts["remote capture"])

	// Remote record kept its identity through the merge.
	found, err := c.Manager().GetHighlight(remoteSet[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "remote capture", found.Text)

	// Merged set persisted through the store, indexed by book.
	persisted, err := st.FindByIndex(context.Background(), bookID.String())
	require.NoError(t, err)
	assert.Len(t, persisted, 2)

	// Uploaded blob reflects the merged set.
	var uploaded []*models.Highlight
	require.NoError(t, json.Unmarshal(tr.blobs[highlightsBlobName(bookID)], &uploaded))
	assert.Len(t, uploaded, 2)
}

func TestSyncHighlightsConvergesAcrossDevices(t *testing.T) {
	tr := newMemTransport()
	bookID := models.NewBookID()

	deviceA := New(Config{Transport: tr})
	t.Cleanup(deviceA.Close)
	deviceB := New(Config{Transport: tr})
	t.Cleanup(deviceB.Close)

	_, err := deviceA.Manager().CreateHighlight("from A", fallbackOnly("from A"), models.ColorYellow, models.PlatformWeb, bookID, nil)
	require.NoError(t, err)
	_, err = deviceB.Manager().CreateHighlight("from B", fallbackOnly("from B"), models.ColorGreen, models.PlatformMobile, bookID, nil)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, deviceA.SyncHighlights(ctx, bookID))
	require.NoError(t, deviceB.SyncHighlights(ctx, bookID))
	require.NoError(t, deviceA.SyncHighlights(ctx, bookID))

	assert.Len(t, deviceA.Manager().GetHighlightsForBook(bookID), 2)
	assert.Len(t, deviceB.Manager().GetHighlightsForBook(bookID), 2)
}

func TestSyncHighlightsWithoutTransport(t *testing.T) {
	c := New(Config{})
	t.Cleanup(c.Close)
	assert.ErrorIs(t, c.SyncHighlights(context.Background(), models.NewBookID()), ErrNoTransport)
}

func TestSyncHighlightsRejectsCorruptRemote(t *testing.T) {
	tr := newMemTransport()
	c := New(Config{Transport: tr})
	t.Cleanup(c.Close)

	bookID := models.NewBookID()
	tr.blobs[highlightsBlobName(bookID)] = []byte("{not json")

	assert.Error(t, c.SyncHighlights(context.Background(), bookID))
}

// The default executor ships queued operation payloads as named blobs once
// the device is online.
func TestDefaultExecutorUploadsOperations(t *testing.T) {
	tr := newMemTransport()
	c := New(Config{Transport: tr})
	t.Cleanup(c.Close)

	queued := models.SyncOperation{
		Type:     "highlight-update",
		Data:     json.RawMessage(`{"field":"color"}`),
		Priority: models.PriorityImmediate,
		Platform: models.PlatformWeb,
	}
	c.AddToSyncQueue(queued)

	notifier, ok := c.notifier.(interface{ SetOnline(bool) })
	require.True(t, ok)
	notifier.SetOnline(true)

	pending := c.PendingOperations()
	assert.Empty(t, pending)

	require.Len(t, tr.blobs, 1)
	for name, data := range tr.blobs {
		assert.Contains(t, name, "ops-")
		assert.JSONEq(t, `{"field":"color"}`, string(data))
	}
}
