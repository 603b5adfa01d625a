package store

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mt_trader/internal/httpmiddleware"
	"mt_trader/internal/models"
)

// GitHub - зеркало хранилища в GitHub репозитории через contents API.
// Все документы лежат под data/ в репозитории.
type GitHub struct {
	token      string
	owner      string
	repo       string
	branch     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewGitHub создаёт GitHub хранилище
func NewGitHub(token, owner, repo, branch string, logger *slog.Logger) *GitHub {
	if branch == "" {
		branch = "main"
	}

	httpClient := &http.Client{
		Timeout: 30 * time.Second,
		Transport: httpmiddleware.Wrap(
			httpmiddleware.BaseTransport(),
			httpmiddleware.ReplayableBody,
			httpmiddleware.Retry(logger, 3, time.Second),
			httpmiddleware.Logger(logger, 0),
		),
	}

	return &GitHub{
		token:      token,
		owner:      owner,
		repo:       repo,
		branch:     branch,
		httpClient: httpClient,
		logger:     logger,
	}
}

func (s *GitHub) contentsURL(path string) string {
	repoPath := "data/" + strings.TrimPrefix(path, "/")
	return fmt.Sprintf("https://api.github.com/repos/%s/%s/contents/%s", s.owner, s.repo, repoPath)
}

func (s *GitHub) do(ctx context.Context, method, rawURL string, body any) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return 0, nil, err
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "mt-trader")
	if s.token != "" {
		req.Header.Set("Authorization", "token "+s.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}

	return resp.StatusCode, raw, nil
}

// sha возвращает SHA существующего файла (пустая строка если файла нет)
func (s *GitHub) sha(ctx context.Context, path string) string {
	u := s.contentsURL(path) + "?ref=" + url.QueryEscape(s.branch)

	status, raw, err := s.do(ctx, http.MethodGet, u, nil)
	if err != nil || status != http.StatusOK {
		return ""
	}

	var meta struct {
		SHA string `json:"sha"`
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return ""
	}

	return meta.SHA
}

func (s *GitHub) Write(ctx context.Context, path string, doc models.Document) error {
	content, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", path, err)
	}

	payload := map[string]any{
		"message": "Update data/" + path,
		"content": base64.StdEncoding.EncodeToString(content),
		"branch":  s.branch,
	}
	if sha := s.sha(ctx, path); sha != "" {
		payload["sha"] = sha
	}

	status, raw, err := s.do(ctx, http.MethodPut, s.contentsURL(path), payload)
	if err != nil {
		return fmt.Errorf("github write %s: %w", path, err)
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return fmt.Errorf("github write %s: status %d: %s", path, status, raw)
	}

	return nil
}

func (s *GitHub) Read(ctx context.Context, path string) (models.Document, error) {
	u := s.contentsURL(path) + "?ref=" + url.QueryEscape(s.branch)

	status, raw, err := s.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("github read %s: %w", path, err)
	}
	if status != http.StatusOK {
		return models.Document{}, nil
	}

	var meta struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(raw, &meta); err != nil || meta.Content == "" {
		return models.Document{}, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(meta.Content, "\n", ""))
	if err != nil {
		return models.Document{}, nil
	}

	var doc models.Document
	if err := json.Unmarshal(decoded, &doc); err != nil {
		s.logger.Warn("Malformed document in github, treating as empty", slog.String("path", path))
		return models.Document{}, nil
	}

	return doc, nil
}

func (s *GitHub) List(ctx context.Context, dir string) ([]string, error) {
	u := s.contentsURL(strings.TrimSuffix(dir, "/")) + "?ref=" + url.QueryEscape(s.branch)

	status, raw, err := s.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("github list %s: %w", dir, err)
	}
	if status != http.StatusOK {
		return nil, nil
	}

	var items []struct {
		Type string `json:"type"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, nil
	}

	var names []string
	for _, it := range items {
		if it.Type == "file" && strings.HasSuffix(it.Name, ".json") {
			names = append(names, it.Name)
		}
	}

	return names, nil
}

func (s *GitHub) Delete(ctx context.Context, path string) error {
	sha := s.sha(ctx, path)
	if sha == "" {
		return nil
	}

	payload := map[string]any{
		"message": "Delete data/" + path,
		"sha":     sha,
		"branch":  s.branch,
	}

	status, raw, err := s.do(ctx, http.MethodDelete, s.contentsURL(path), payload)
	if err != nil {
		return fmt.Errorf("github delete %s: %w", path, err)
	}
	if status != http.StatusOK && status != http.StatusNoContent {
		return fmt.Errorf("github delete %s: status %d: %s", path, status, raw)
	}

	return nil
}
