package mirror

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jon4hz/loaderdesk/internal/models"
)

var _ FileStore = (*GitHub)(nil)

// GitHub mirrors files into a repository through the REST contents API.
type GitHub struct {
	baseURL    string
	token      string
	owner      string
	repo       string
	branch     string
	httpClient *http.Client
}

// NewGitHub creates a new GitHub contents API client.
func NewGitHub(baseURL string, settings models.MirrorSettings) *GitHub {
	branch := settings.Branch
	if branch == "" {
		branch = "main"
	}
	return &GitHub{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      settings.Token,
		owner:      settings.Owner,
		repo:       settings.Repository,
		branch:     branch,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (g *GitHub) Name() string {
	return "github"
}

type contentResponse struct {
	Path    string `json:"path"`
	SHA     string `json:"sha"`
	Content string `json:"content"`
}

type putContentRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	SHA     string `json:"sha,omitempty"`
	Branch  string `json:"branch,omitempty"`
}

type treeResponse struct {
	Tree []struct {
		Path string `json:"path"`
		Type string `json:"type"`
	} `json:"tree"`
	Truncated bool `json:"truncated"`
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("API request failed with status %d: %s", e.code, e.body)
}

func escapePath(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

// doRequest performs an HTTP request to the GitHub API and decodes a JSON response into out.
func (g *GitHub) doRequest(ctx context.Context, method, endpoint string, query url.Values, body, out any) error {
	reqURL := g.baseURL + endpoint
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("error encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error performing request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return &statusError{code: resp.StatusCode, body: string(bodyBytes)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("error decoding response: %w", err)
	}
	return nil
}

func (g *GitHub) contentsEndpoint(path string) string {
	return fmt.Sprintf("/repos/%s/%s/contents/%s", url.PathEscape(g.owner), url.PathEscape(g.repo), escapePath(path))
}

// FileExists returns the blob sha of path on the configured branch.
func (g *GitHub) FileExists(ctx context.Context, path string) (*FileInfo, error) {
	var content contentResponse
	err := g.doRequest(ctx, http.MethodGet, g.contentsEndpoint(path), url.Values{"ref": {g.branch}}, nil, &content)
	if err != nil {
		if se, ok := err.(*statusError); ok && se.code == http.StatusNotFound {
			return nil, nil
		}
		return nil, &Error{Op: "exists", Path: path, Err: err}
	}
	return &FileInfo{Path: path, SHA: content.SHA}, nil
}

// CreateFile commits a new file.
func (g *GitHub) CreateFile(ctx context.Context, path string, content []byte, message string) error {
	return g.put(ctx, "create", path, content, "", message)
}

// UpdateFile commits a new version of an existing file. A stale sha yields ErrConflict.
func (g *GitHub) UpdateFile(ctx context.Context, path string, content []byte, sha, message string) error {
	return g.put(ctx, "update", path, content, sha, message)
}

func (g *GitHub) put(ctx context.Context, op, path string, content []byte, sha, message string) error {
	body := putContentRequest{
		Message: message,
		Content: base64.StdEncoding.EncodeToString(content),
		SHA:     sha,
		Branch:  g.branch,
	}
	err := g.doRequest(ctx, http.MethodPut, g.contentsEndpoint(path), nil, body, nil)
	if err == nil {
		return nil
	}
	if se, ok := err.(*statusError); ok {
		switch se.code {
		case http.StatusConflict, http.StatusUnprocessableEntity:
			return &Error{Op: op, Path: path, Err: fmt.Errorf("%w: %v", ErrConflict, err)}
		}
	}
	return &Error{Op: op, Path: path, Err: err}
}

// ListFiles returns the paths of every blob reachable from ref.
func (g *GitHub) ListFiles(ctx context.Context, ref string) ([]string, error) {
	if ref == "" {
		ref = g.branch
	}
	endpoint := fmt.Sprintf("/repos/%s/%s/git/trees/%s", url.PathEscape(g.owner), url.PathEscape(g.repo), url.PathEscape(ref))

	var tree treeResponse
	if err := g.doRequest(ctx, http.MethodGet, endpoint, url.Values{"recursive": {"1"}}, nil, &tree); err != nil {
		return nil, &Error{Op: "list", Path: ref, Err: err}
	}

	paths := make([]string, 0, len(tree.Tree))
	for _, entry := range tree.Tree {
		if entry.Type == "blob" {
			paths = append(paths, entry.Path)
		}
	}
	return paths, nil
}
