package models

import (
	"fmt"
	"net/url"
	"strings"
)

// RepoIdentity is the (owner, name) pair that uniquely addresses a
// repository. It is derived from the canonical URL form
// https://github.com/owner/name and is the primary cache key for
// repository-level analysis.
type RepoIdentity struct {
	Owner string `bson:"owner" json:"owner"`
	Name  string `bson:"name"  json:"name"`
}

// ParseRepoURL normalizes a repository URL into a RepoIdentity.
// Trailing slashes and a trailing ".git" are stripped, a missing scheme is
// tolerated. Normalization is idempotent: parsing CanonicalURL() yields the
// same identity.
func ParseRepoURL(raw string) (RepoIdentity, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return RepoIdentity{}, fmt.Errorf("repository url is empty")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return RepoIdentity{}, fmt.Errorf("invalid repository url %q: %w", raw, err)
	}
	if u.Host == "" {
		return RepoIdentity{}, fmt.Errorf("repository url %q has no host", raw)
	}

	path := strings.Trim(u.Path, "/")
	path = strings.TrimSuffix(path, ".git")

	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return RepoIdentity{}, fmt.Errorf("repository url %q must be of the form https://github.com/owner/name", raw)
	}

	return RepoIdentity{Owner: parts[0], Name: parts[1]}, nil
}

// ID returns the "owner/name" form used as the Mongo _id.
func (r RepoIdentity) ID() string {
	return r.Owner + "/" + r.Name
}

// CanonicalURL returns the normalized https URL for the repository.
func (r RepoIdentity) CanonicalURL() string {
	return "https://github.com/" + r.Owner + "/" + r.Name
}
