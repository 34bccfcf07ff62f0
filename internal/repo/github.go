package repo

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// GitHubConfig identifies the repository holding article files.
type GitHubConfig struct {
	Owner  string
	Repo   string
	Branch string // empty = repository default branch
	Token  string
	// BaseURL overrides https://api.github.com, for GitHub Enterprise
	// and tests.
	BaseURL string
}

// GitHubClient talks to the GitHub contents API. Reads go through an
// in-process cache keyed by path; every sync run starts by invalidating
// it so directory listings and file reads reflect the live repository.
type GitHubClient struct {
	cfg    GitHubConfig
	http   *http.Client
	mu     sync.RWMutex
	cache  map[string]*Content
}

// NewGitHubClient validates the configuration and returns a client.
func NewGitHubClient(cfg GitHubConfig) (*GitHubClient, error) {
	if cfg.Owner == "" || cfg.Repo == "" {
		return nil, fmt.Errorf("github owner and repo are required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.github.com"
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")

	return &GitHubClient{
		cfg:   cfg,
		http:  &http.Client{Timeout: 30 * time.Second},
		cache: make(map[string]*Content),
	}, nil
}

func (g *GitHubClient) contentsURL(path string) string {
	u := fmt.Sprintf("%s/repos/%s/%s/contents/%s",
		g.cfg.BaseURL, g.cfg.Owner, g.cfg.Repo, strings.TrimPrefix(path, "/"))
	if g.cfg.Branch != "" {
		u += "?ref=" + url.QueryEscape(g.cfg.Branch)
	}
	return u
}

func (g *GitHubClient) do(ctx context.Context, method, rawURL string, body interface{}) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if g.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+g.cfg.Token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("github request failed: %w", err)
	}
	return resp, nil
}

// contentsEntry is the GitHub contents API response shape for both
// listings and single files.
type contentsEntry struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	SHA     string `json:"sha"`
	Size    int64  `json:"size"`
	Type    string `json:"type"` // file | dir
	Content string `json:"content"`
}

// List implements Client.
func (g *GitHubClient) List(ctx context.Context, path string) ([]Entry, error) {
	resp, err := g.do(ctx, http.MethodGet, g.contentsURL(path), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("list %s: %w", path, ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, httpError("list", path, resp)
	}

	var entries []contentsEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to decode listing for %s: %w", path, err)
	}

	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		out = append(out, Entry{
			Path:  e.Path,
			SHA:   e.SHA,
			Size:  e.Size,
			IsDir: e.Type == "dir",
		})
	}
	return out, nil
}

// Read implements Client. Cached content is served until
// InvalidateCache is called.
func (g *GitHubClient) Read(ctx context.Context, path string) (*Content, error) {
	g.mu.RLock()
	cached, ok := g.cache[path]
	g.mu.RUnlock()
	if ok {
		return cached, nil
	}

	resp, err := g.do(ctx, http.MethodGet, g.contentsURL(path), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("read %s: %w", path, ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, httpError("read", path, resp)
	}

	var entry contentsEntry
	if err := json.NewDecoder(resp.Body).Decode(&entry); err != nil {
		return nil, fmt.Errorf("failed to decode file %s: %w", path, err)
	}
	if entry.Type != "file" {
		return nil, fmt.Errorf("read %s: not a file (%s)", path, entry.Type)
	}

	// The API wraps base64 payloads at 60 columns.
	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(entry.Content, "\n", ""))
	if err != nil {
		return nil, fmt.Errorf("failed to decode content of %s: %w", path, err)
	}

	content := &Content{Text: string(decoded), SHA: entry.SHA}
	g.mu.Lock()
	g.cache[path] = content
	g.mu.Unlock()
	return content, nil
}

// Write implements Client. Updates require the current blob SHA, so an
// existing file is looked up first.
func (g *GitHubClient) Write(ctx context.Context, path, text string) error {
	payload := map[string]interface{}{
		"message": "Update " + path,
		"content": base64.StdEncoding.EncodeToString([]byte(text)),
	}
	if g.cfg.Branch != "" {
		payload["branch"] = g.cfg.Branch
	}

	existing, err := g.Read(ctx, path)
	switch {
	case err == nil:
		payload["sha"] = existing.SHA
	case errors.Is(err, ErrNotFound):
		payload["message"] = "Create " + path
	default:
		return err
	}

	resp, err := g.do(ctx, http.MethodPut, g.contentsURL(path), payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return httpError("write", path, resp)
	}

	g.mu.Lock()
	delete(g.cache, path)
	g.mu.Unlock()
	return nil
}

// Delete implements Client. A missing file is treated as success.
func (g *GitHubClient) Delete(ctx context.Context, path string) error {
	existing, err := g.Read(ctx, path)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}

	payload := map[string]interface{}{
		"message": "Delete " + path,
		"sha":     existing.SHA,
	}
	if g.cfg.Branch != "" {
		payload["branch"] = g.cfg.Branch
	}

	resp, err := g.do(ctx, http.MethodDelete, g.contentsURL(path), payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		return httpError("delete", path, resp)
	}

	g.mu.Lock()
	delete(g.cache, path)
	g.mu.Unlock()
	return nil
}

// InvalidateCache implements Client.
func (g *GitHubClient) InvalidateCache() {
	g.mu.Lock()
	g.cache = make(map[string]*Content)
	g.mu.Unlock()
}

func httpError(op, path string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("github %s %s: status %d: %s", op, path, resp.StatusCode, strings.TrimSpace(string(body)))
}
