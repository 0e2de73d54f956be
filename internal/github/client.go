package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"repolens/internal/models"
)

// Sentinel errors callers branch on. A 404 (or a private repo the token
// cannot see) maps to ErrNotFound; GitHub throttling maps to ErrRateLimited.
var (
	ErrNotFound    = errors.New("github: not found")
	ErrRateLimited = errors.New("github: rate limited")
)

const defaultBaseURL = "https://api.github.com"

// Client is a minimal wrapper around GitHub's REST API v3.
// It is intentionally light—just the endpoints our services require.
// The bounded request timeout keeps a dead upstream connection from hanging
// an orchestration indefinitely.
type Client struct {
	http    *http.Client
	baseURL string
	token   string
}

// NewClient returns a ready-to-use GitHub API client.
// token may be an empty string, but you will be subject to very low rate-limits.
func NewClient(token string) *Client {
	return &Client{
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
		baseURL: defaultBaseURL,
		token:   token,
	}
}

// NewClientWithBaseURL is used by tests to point the client at a stub server.
func NewClientWithBaseURL(token, baseURL string) *Client {
	c := NewClient(token)
	c.baseURL = strings.TrimSuffix(baseURL, "/")
	return c
}

// WithToken returns a copy of the client authenticated as a different user.
// The underlying HTTP client (and its connection pool) is shared.
func (c *Client) WithToken(token string) *Client {
	if token == "" {
		return c
	}
	return &Client{http: c.http, baseURL: c.baseURL, token: token}
}

// ---- repository metadata ----------------------------------------------------

type repoResponse struct {
	Description   string   `json:"description"`
	Language      string   `json:"language"`
	Stars         int      `json:"stargazers_count"`
	Forks         int      `json:"forks_count"`
	Watchers      int      `json:"subscribers_count"`
	DefaultBranch string   `json:"default_branch"`
	Topics        []string `json:"topics"`
	CreatedAt     string   `json:"created_at"`
	UpdatedAt     string   `json:"updated_at"`
	PushedAt      string   `json:"pushed_at"`
	Size          int      `json:"size"`
	Private       bool     `json:"private"`
	License       *struct {
		Name string `json:"name"`
	} `json:"license"`
	HTMLURL string `json:"html_url"`
}

// GetRepository fetches a repository's metadata.
func (c *Client) GetRepository(ctx context.Context, owner, name string) (models.RepoMetadata, error) {
	var raw repoResponse
	u := fmt.Sprintf("%s/repos/%s/%s", c.baseURL, url.PathEscape(owner), url.PathEscape(name))
	if err := c.get(ctx, u, &raw); err != nil {
		return models.RepoMetadata{}, err
	}

	meta := models.RepoMetadata{
		Description:   raw.Description,
		Language:      raw.Language,
		Stars:         raw.Stars,
		Forks:         raw.Forks,
		Watchers:      raw.Watchers,
		DefaultBranch: raw.DefaultBranch,
		Topics:        raw.Topics,
		CreatedAt:     parseTime(raw.CreatedAt),
		UpdatedAt:     parseTime(raw.UpdatedAt),
		PushedAt:      parseTime(raw.PushedAt),
		SizeKB:        raw.Size,
		Private:       raw.Private,
		HTMLURL:       raw.HTMLURL,
	}
	if raw.License != nil {
		meta.License = raw.License.Name
	}
	return meta, nil
}

// ---- commits & contributors -------------------------------------------------

type commitResponse struct {
	SHA    string `json:"sha"`
	Commit struct {
		Message string `json:"message"`
		Author  struct {
			Name string `json:"name"`
			Date string `json:"date"`
		} `json:"author"`
	} `json:"commit"`
	HTMLURL string `json:"html_url"`
}

// ListCommits fetches the most recent commits (perPage max 100).
func (c *Client) ListCommits(ctx context.Context, owner, name string, perPage int) ([]models.Commit, error) {
	var raw []commitResponse
	u := fmt.Sprintf("%s/repos/%s/%s/commits?per_page=%d",
		c.baseURL, url.PathEscape(owner), url.PathEscape(name), perPage)
	if err := c.get(ctx, u, &raw); err != nil {
		return nil, err
	}

	commits := make([]models.Commit, 0, len(raw))
	for _, r := range raw {
		sha := r.SHA
		if len(sha) > 7 {
			sha = sha[:7]
		}
		commits = append(commits, models.Commit{
			SHA:     sha,
			Message: firstLine(r.Commit.Message),
			Author:  r.Commit.Author.Name,
			Date:    parseTime(r.Commit.Author.Date),
			HTMLURL: r.HTMLURL,
		})
	}
	return commits, nil
}

type contributorResponse struct {
	Login         string `json:"login"`
	AvatarURL     string `json:"avatar_url"`
	HTMLURL       string `json:"html_url"`
	Contributions int    `json:"contributions"`
}

// ListContributors fetches the top contributors by contribution count.
func (c *Client) ListContributors(ctx context.Context, owner, name string, perPage int) ([]models.Contributor, error) {
	var raw []contributorResponse
	u := fmt.Sprintf("%s/repos/%s/%s/contributors?per_page=%d",
		c.baseURL, url.PathEscape(owner), url.PathEscape(name), perPage)
	if err := c.get(ctx, u, &raw); err != nil {
		return nil, err
	}

	out := make([]models.Contributor, 0, len(raw))
	for _, r := range raw {
		out = append(out, models.Contributor{
			Login:         r.Login,
			AvatarURL:     r.AvatarURL,
			HTMLURL:       r.HTMLURL,
			Contributions: r.Contributions,
		})
	}
	return out, nil
}

// ---- tree & contents ----------------------------------------------------------

type treeResponse struct {
	Tree []struct {
		Path string `json:"path"`
		Type string `json:"type"`
		Size int    `json:"size"`
	} `json:"tree"`
	Truncated bool `json:"truncated"`
}

// GetTree fetches the full recursive file tree at the given branch.
func (c *Client) GetTree(ctx context.Context, owner, name, branch string) ([]models.TreeEntry, error) {
	var raw treeResponse
	u := fmt.Sprintf("%s/repos/%s/%s/git/trees/%s?recursive=1",
		c.baseURL, url.PathEscape(owner), url.PathEscape(name), url.PathEscape(branch))
	if err := c.get(ctx, u, &raw); err != nil {
		return nil, err
	}

	entries := make([]models.TreeEntry, 0, len(raw.Tree))
	for _, e := range raw.Tree {
		entries = append(entries, models.TreeEntry{Path: e.Path, Type: e.Type, Size: e.Size})
	}
	return entries, nil
}

type contentResponse struct {
	Encoding string `json:"encoding"`
	Content  string `json:"content"`
}

// GetFileContent fetches and decodes a file's content at the given ref.
// ref may be empty for the default branch.
func (c *Client) GetFileContent(ctx context.Context, owner, name, path, ref string) (string, error) {
	u := fmt.Sprintf("%s/repos/%s/%s/contents/%s",
		c.baseURL, url.PathEscape(owner), url.PathEscape(name), escapePath(path))
	if ref != "" {
		u += "?ref=" + url.QueryEscape(ref)
	}

	var raw contentResponse
	if err := c.get(ctx, u, &raw); err != nil {
		return "", err
	}
	if raw.Encoding != "base64" {
		return raw.Content, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(raw.Content, "\n", ""))
	if err != nil {
		return "", fmt.Errorf("github: decode content of %s: %w", path, err)
	}
	return string(decoded), nil
}

// ---- counts -------------------------------------------------------------------

type searchCountResponse struct {
	TotalCount int `json:"total_count"`
}

// CountSearchItems returns the total_count of a search-API query, e.g.
// "repo:owner/name type:issue state:open".
func (c *Client) CountSearchItems(ctx context.Context, query string) (int, error) {
	var raw searchCountResponse
	u := fmt.Sprintf("%s/search/issues?q=%s&per_page=1", c.baseURL, url.QueryEscape(query))
	if err := c.get(ctx, u, &raw); err != nil {
		return 0, err
	}
	return raw.TotalCount, nil
}

// CountDeployments returns the number of deployments (first page, up to 100).
func (c *Client) CountDeployments(ctx context.Context, owner, name string) (int, error) {
	var raw []json.RawMessage
	u := fmt.Sprintf("%s/repos/%s/%s/deployments?per_page=100",
		c.baseURL, url.PathEscape(owner), url.PathEscape(name))
	if err := c.get(ctx, u, &raw); err != nil {
		return 0, err
	}
	return len(raw), nil
}

// ---- issues -------------------------------------------------------------------

type issueResponse struct {
	ID        int    `json:"id"`
	Number    int    `json:"number"`
	Title     string `json:"title"`
	State     string `json:"state"`
	HTMLURL   string `json:"html_url"`
	CreatedAt string `json:"created_at"`
	Comments  int    `json:"comments"`
	User      struct {
		Login     string `json:"login"`
		AvatarURL string `json:"avatar_url"`
	} `json:"user"`
	Labels []struct {
		Name  string `json:"name"`
		Color string `json:"color"`
	} `json:"labels"`
	PullRequest *struct{} `json:"pull_request"`
}

// ListIssues fetches issues and pull requests (GitHub serves both on the
// issues endpoint; IsPullRequest distinguishes them). state is
// "open" | "closed" | "all".
func (c *Client) ListIssues(ctx context.Context, owner, name, state string, perPage int) ([]models.Issue, error) {
	u := fmt.Sprintf("%s/repos/%s/%s/issues?state=%s&per_page=%d",
		c.baseURL, url.PathEscape(owner), url.PathEscape(name), url.QueryEscape(state), perPage)

	var raw []issueResponse
	if err := c.get(ctx, u, &raw); err != nil {
		return nil, err
	}

	issues := make([]models.Issue, 0, len(raw))
	for _, r := range raw {
		issue := models.Issue{
			ID:            r.ID,
			Number:        r.Number,
			Title:         r.Title,
			State:         r.State,
			HTMLURL:       r.HTMLURL,
			CreatedAt:     parseTime(r.CreatedAt),
			AuthorLogin:   r.User.Login,
			AuthorAvatar:  r.User.AvatarURL,
			Comments:      r.Comments,
			IsPullRequest: r.PullRequest != nil,
		}
		for _, l := range r.Labels {
			issue.Labels = append(issue.Labels, models.IssueLabel{Name: l.Name, Color: l.Color})
		}
		issues = append(issues, issue)
	}
	return issues, nil
}

// ---- plumbing -----------------------------------------------------------------

// get executes an authenticated GET and decodes JSON into v.
func (c *Client) get(ctx context.Context, rawURL string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("User-Agent", "repolens-api")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case resp.StatusCode == http.StatusForbidden:
		// GitHub reports primary and secondary rate limiting as 403.
		if resp.Header.Get("X-RateLimit-Remaining") == "0" ||
			resp.Header.Get("Retry-After") != "" {
			return ErrRateLimited
		}
		// Otherwise the token lacks access; indistinguishable from absent.
		return ErrNotFound
	case resp.StatusCode >= 300:
		return fmt.Errorf("github: unexpected status %s for %s", resp.Status, rawURL)
	}

	return json.NewDecoder(resp.Body).Decode(v)
}

// escapePath escapes each path segment while keeping the separators.
func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, s := range parts {
		parts[i] = url.PathEscape(s)
	}
	return strings.Join(parts, "/")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 120 {
		s = s[:117] + "..."
	}
	return s
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}
