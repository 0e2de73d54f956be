package models

import "time"

// IssueLabel is one label attached to an issue or pull request.
type IssueLabel struct {
	Name  string `json:"name"  bson:"name"`
	Color string `json:"color" bson:"color"`
}

// Issue captures the fields we keep from GitHub's issues API. Pull requests
// arrive on the same endpoint; IsPullRequest distinguishes them.
type Issue struct {
	ID            int          `json:"id"              bson:"id"`
	Number        int          `json:"number"          bson:"number"`
	Title         string       `json:"title"           bson:"title"`
	State         string       `json:"state"           bson:"state"`
	HTMLURL       string       `json:"html_url"        bson:"html_url"`
	CreatedAt     time.Time    `json:"created_at"      bson:"created_at"`
	AuthorLogin   string       `json:"author_login"    bson:"author_login"`
	AuthorAvatar  string       `json:"author_avatar"   bson:"author_avatar"`
	Labels        []IssueLabel `json:"labels"          bson:"labels"`
	Comments      int          `json:"comments"        bson:"comments"`
	IsPullRequest bool         `json:"is_pull_request" bson:"is_pull_request"`
}
