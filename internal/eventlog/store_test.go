package eventlog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testRedisAddr requires Redis running locally; the test skips otherwise.
const testRedisAddr = "localhost:6379"

func sampleRecords() []Record {
	ts := time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)
	return []Record{
		{Kind: KindJoin, DisplayName: SystemName, Text: "Alice has joined the chat", Timestamp: ts},
		{Kind: KindMessage, DisplayName: "Alice", Text: "hi", Timestamp: ts.Add(time.Second)},
		{Kind: KindLeave, DisplayName: SystemName, Text: "Alice has left the chat", Timestamp: ts.Add(2 * time.Second)},
	}
}

// exerciseStore appends the sample records and checks they come back in
// append order with store-assigned ids.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	want := sampleRecords()
	for _, rec := range want {
		require.NoError(t, store.Append(ctx, rec))
	}

	got, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, len(want))

	ids := make(map[string]bool)
	for i, rec := range got {
		assert.NotEmpty(t, rec.ID)
		assert.False(t, ids[rec.ID], "duplicate id %s", rec.ID)
		ids[rec.ID] = true

		assert.Equal(t, want[i].Kind, rec.Kind)
		assert.Equal(t, want[i].DisplayName, rec.DisplayName)
		assert.Equal(t, want[i].Text, rec.Text)
		assert.True(t, want[i].Timestamp.Equal(rec.Timestamp), "timestamp %v != %v", rec.Timestamp, want[i].Timestamp)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	store, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	defer store.Close()

	exerciseStore(t, store)
}

func TestRedisStore(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: testRedisAddr})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("Redis not available at %s: %v", testRedisAddr, err)
	}

	key := "gochat:test:" + t.Name()
	client.Del(ctx, key)
	store := NewRedisStore(client, key)
	defer func() {
		client.Del(ctx, key)
		store.Close()
	}()

	exerciseStore(t, store)
}

// fakeAppwrite mimics the documents endpoints of an Appwrite collection.
type fakeAppwrite struct {
	mu        sync.Mutex
	documents []appwriteDocument
	headers   []http.Header
	fail      bool
}

func (f *fakeAppwrite) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.headers = append(f.headers, r.Header.Clone())

	w.Header().Set("Content-Type", "application/json")
	if f.fail {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(appwriteError{Message: "maintenance", Code: 503, Type: "general_unavailable"})
		return
	}
	if r.URL.Path != "/v1/databases/db/collections/chat/documents" {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodPost:
		var req appwriteCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DocumentID != "unique()" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		doc := req.Data
		doc.ID = "doc-" + string(rune('a'+len(f.documents)))
		f.documents = append(f.documents, doc)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(doc)
	case http.MethodGet:
		_ = json.NewEncoder(w).Encode(appwriteListResponse{Total: len(f.documents), Documents: f.documents})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newAppwriteStoreForTest(t *testing.T, handler http.Handler) *AppwriteStore {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store, err := NewAppwriteStore(AppwriteConfig{
		Endpoint:     srv.URL + "/v1",
		ProjectID:    "project",
		APIKey:       "secret",
		DatabaseID:   "db",
		CollectionID: "chat",
	}, srv.Client())
	require.NoError(t, err)
	return store
}

func TestAppwriteStore(t *testing.T) {
	fake := &fakeAppwrite{}
	store := newAppwriteStoreForTest(t, fake)

	exerciseStore(t, store)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.NotEmpty(t, fake.headers)
	for _, h := range fake.headers {
		assert.Equal(t, "project", h.Get("X-Appwrite-Project"))
		assert.Equal(t, "secret", h.Get("X-Appwrite-Key"))
	}
}

func TestAppwriteStore_ErrorStatus(t *testing.T) {
	store := newAppwriteStoreForTest(t, &fakeAppwrite{fail: true})

	err := store.Append(context.Background(), sampleRecords()[0])
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maintenance")

	_, err = store.List(context.Background())
	assert.Error(t, err)
}

func TestNewAppwriteStore_RequiresIdentifiers(t *testing.T) {
	_, err := NewAppwriteStore(AppwriteConfig{Endpoint: "http://localhost/v1"}, nil)
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	store, closer, err := Open(ctx, DefaultConfig())
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)
	assert.NoError(t, closer.Close())

	store, closer, err = Open(ctx, Config{Backend: "SQLite", SQLite: SQLiteConfig{Path: ":memory:"}})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, store)
	assert.NoError(t, closer.Close())

	_, _, err = Open(ctx, Config{Backend: "mongo"})
	assert.True(t, errors.Is(err, ErrUnknownBackend))

	_, _, err = Open(ctx, Config{Backend: BackendAppwrite})
	assert.Error(t, err)
}
