package eventlog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// AppwriteConfig locates a collection in an Appwrite document database.
type AppwriteConfig struct {
	Endpoint     string `yaml:"endpoint"`
	ProjectID    string `yaml:"project_id"`
	APIKey       string `yaml:"api_key"`
	DatabaseID   string `yaml:"database_id"`
	CollectionID string `yaml:"collection_id"`
}

// AppwriteStore keeps each record as a document in an Appwrite collection,
// letting the server assign document ids.
type AppwriteStore struct {
	cfg        AppwriteConfig
	documents  string
	httpClient *http.Client
}

type appwriteCreateRequest struct {
	DocumentID string           `json:"documentId"`
	Data       appwriteDocument `json:"data"`
}

type appwriteDocument struct {
	ID          string    `json:"$id,omitempty"`
	Kind        Kind      `json:"kind"`
	DisplayName string    `json:"displayName"`
	Text        string    `json:"text"`
	Timestamp   time.Time `json:"timestamp"`
}

type appwriteListResponse struct {
	Total     int                `json:"total"`
	Documents []appwriteDocument `json:"documents"`
}

type appwriteError struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
	Type    string `json:"type"`
}

// NewAppwriteStore validates cfg and builds the collection's documents URL.
// A nil httpClient uses http.DefaultClient.
func NewAppwriteStore(cfg AppwriteConfig, httpClient *http.Client) (*AppwriteStore, error) {
	if cfg.Endpoint == "" || cfg.ProjectID == "" || cfg.DatabaseID == "" || cfg.CollectionID == "" {
		return nil, fmt.Errorf("appwrite store requires endpoint, project, database and collection ids")
	}
	documents, err := url.JoinPath(cfg.Endpoint, "databases", cfg.DatabaseID, "collections", cfg.CollectionID, "documents")
	if err != nil {
		return nil, fmt.Errorf("invalid appwrite endpoint %q: %w", cfg.Endpoint, err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &AppwriteStore{cfg: cfg, documents: documents, httpClient: httpClient}, nil
}

func (s *AppwriteStore) Append(ctx context.Context, rec Record) error {
	body, err := json.Marshal(appwriteCreateRequest{
		DocumentID: "unique()",
		Data: appwriteDocument{
			Kind:        rec.Kind,
			DisplayName: rec.DisplayName,
			Text:        rec.Text,
			Timestamp:   rec.Timestamp,
		},
	})
	if err != nil {
		return fmt.Errorf("appwrite append marshal error: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.documents, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("appwrite append request error: %w", err)
	}
	resp, err := s.do(req)
	if err != nil {
		return fmt.Errorf("appwrite append error: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (s *AppwriteStore) List(ctx context.Context) ([]Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.documents, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("appwrite list request error: %w", err)
	}
	resp, err := s.do(req)
	if err != nil {
		return nil, fmt.Errorf("appwrite list error: %w", err)
	}
	defer resp.Body.Close()

	var list appwriteListResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("appwrite list decode error: %w", err)
	}

	records := make([]Record, 0, len(list.Documents))
	for _, doc := range list.Documents {
		records = append(records, Record{
			ID:          doc.ID,
			Kind:        doc.Kind,
			DisplayName: doc.DisplayName,
			Text:        doc.Text,
			Timestamp:   doc.Timestamp,
		})
	}
	return records, nil
}

// do sends req with the project headers and turns non-2xx replies into errors.
func (s *AppwriteStore) do(req *http.Request) (*http.Response, error) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Appwrite-Project", s.cfg.ProjectID)
	if s.cfg.APIKey != "" {
		req.Header.Set("X-Appwrite-Key", s.cfg.APIKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	var apiErr appwriteError
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Message != "" {
		return nil, fmt.Errorf("status %d (%s): %s", resp.StatusCode, apiErr.Type, apiErr.Message)
	}
	return nil, fmt.Errorf("status %d", resp.StatusCode)
}
