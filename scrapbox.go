package sbpatch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const DefaultBaseURL = "https://scrapbox.io"

// Store reads page snapshots from a scrapbox-compatible document store
// over its HTTP API. It implements SnapshotProvider only: mutation
// goes through whatever input bridge the caller injects, and session
// bootstrapping stays outside — the session cookie is taken as-is.
type Store struct {
	base    *url.URL
	project string
	cookie  string
	client  *http.Client
}

func NewStore(baseURL, project, sessionCookie string) (*Store, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("base url %q: %w", baseURL, err)
	}
	if project == "" {
		return nil, fmt.Errorf("project name is required")
	}
	return &Store{
		base:    u,
		project: project,
		cookie:  sessionCookie,
		client:  &http.Client{Timeout: 30 * time.Second},
	}, nil
}

type pageResponse struct {
	ID       string `json:"id"`
	CommitID string `json:"commitId"`
	Lines    []struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"lines"`
}

// Snapshot fetches the page's lines in rendering order. The page's
// commit id serves as the revision marker.
func (s *Store) Snapshot(ctx context.Context, page string) ([]Line, Revision, error) {
	u := s.base.JoinPath("api", "pages", s.project, page)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, "", err
	}
	if s.cookie != "" {
		req.AddCookie(&http.Cookie{Name: "connect.sid", Value: s.cookie})
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch %s/%s: %w", s.project, page, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch %s/%s: unexpected status %s", s.project, page, resp.Status)
	}

	var body pageResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, "", fmt.Errorf("decode %s/%s: %w", s.project, page, err)
	}

	lines := make([]Line, len(body.Lines))
	for i, l := range body.Lines {
		lines[i] = Line{ID: l.ID, Text: l.Text}
	}
	return lines, Revision(body.CommitID), nil
}
