package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"repolens/internal/github"
	"repolens/internal/models"
)

// Sort modes accepted by the issue listing.
const (
	SortCreatedDesc  = "created-desc"
	SortCreatedAsc   = "created-asc"
	SortCommentsDesc = "comments-desc"
)

const maxIssueItems = 30

// IssueLister is the slice of the GitHub client the issue service needs.
type IssueLister interface {
	ListIssues(ctx context.Context, owner, name, state string, perPage int) ([]models.Issue, error)
}

// IssueService lists a repository's issues and pull requests with
// label/type filters and a sort mode.
type IssueService interface {
	List(ctx context.Context, rawURL string, labels []string, typ, sortMode, token string) ([]models.Issue, error)
}

type issueService struct {
	gh *github.Client
}

// NewIssueService wires the GitHub client.
func NewIssueService(gh *github.Client) IssueService {
	return &issueService{gh: gh}
}

// List fetches, filters, sorts and caps the issue list. typ is "issue",
// "pull-request" or empty for both.
func (s *issueService) List(ctx context.Context, rawURL string, labels []string, typ, sortMode, token string) ([]models.Issue, error) {
	id, err := models.ParseRepoURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	switch typ {
	case "", "issue", "pull-request":
	default:
		return nil, fmt.Errorf("%w: unknown type filter %q", ErrInvalidInput, typ)
	}

	issues, err := s.gh.WithToken(token).ListIssues(ctx, id.Owner, id.Name, "all", 100)
	if err != nil {
		switch {
		case errors.Is(err, github.ErrNotFound):
			return nil, fmt.Errorf("%w: %v", ErrUpstreamNotFound, err)
		case errors.Is(err, github.ErrRateLimited):
			return nil, fmt.Errorf("%w: %v", ErrUpstreamRateLimited, err)
		}
		return nil, err
	}

	filtered := FilterIssues(issues, labels, typ)
	SortIssues(filtered, sortMode)

	if len(filtered) > maxIssueItems {
		filtered = filtered[:maxIssueItems]
	}
	return filtered, nil
}

// FilterIssues keeps items matching the type filter and carrying every
// requested label.
func FilterIssues(issues []models.Issue, labels []string, typ string) []models.Issue {
	filtered := make([]models.Issue, 0, len(issues))
	for _, issue := range issues {
		if typ == "issue" && issue.IsPullRequest {
			continue
		}
		if typ == "pull-request" && !issue.IsPullRequest {
			continue
		}
		if !hasAllLabels(issue, labels) {
			continue
		}
		filtered = append(filtered, issue)
	}
	return filtered
}

// SortIssues orders in place. Unknown modes sort created-descending.
func SortIssues(issues []models.Issue, mode string) {
	switch mode {
	case SortCreatedAsc:
		sort.SliceStable(issues, func(i, j int) bool {
			return issues[i].CreatedAt.Before(issues[j].CreatedAt)
		})
	case SortCommentsDesc:
		sort.SliceStable(issues, func(i, j int) bool {
			return issues[i].Comments > issues[j].Comments
		})
	default:
		sort.SliceStable(issues, func(i, j int) bool {
			return issues[i].CreatedAt.After(issues[j].CreatedAt)
		})
	}
}

func hasAllLabels(issue models.Issue, labels []string) bool {
	for _, want := range labels {
		found := false
		for _, l := range issue.Labels {
			if l.Name == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
