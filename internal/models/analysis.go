package models

import "time"

// Caps applied while assembling evidence. They bound both the stored
// document size and the prompt size handed to the model.
const (
	MaxRecentCommits  = 30
	MaxContributors   = 15
	MaxTreeEntries    = 500
	MaxKeyFiles       = 20
	MaxKeyFileContent = 4000
)

// RepoMetadata mirrors the subset of GitHub repository metadata the
// analysis keeps. Everything except the identity fields may be empty.
type RepoMetadata struct {
	Description   string    `bson:"description"    json:"description"`
	Language      string    `bson:"language"       json:"language"`
	Stars         int       `bson:"stars"          json:"stars"`
	Forks         int       `bson:"forks"          json:"forks"`
	Watchers      int       `bson:"watchers"       json:"watchers"`
	DefaultBranch string    `bson:"default_branch" json:"default_branch"`
	Topics        []string  `bson:"topics"         json:"topics"`
	CreatedAt     time.Time `bson:"created_at"     json:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at"     json:"updated_at"`
	PushedAt      time.Time `bson:"pushed_at"      json:"pushed_at"`
	SizeKB        int       `bson:"size_kb"        json:"size_kb"`
	Private       bool      `bson:"private"        json:"private"`
	License       string    `bson:"license"        json:"license"`
	HTMLURL       string    `bson:"html_url"       json:"html_url"`
}

// Commit is one entry of the recent-commit list.
type Commit struct {
	SHA     string    `bson:"sha"      json:"sha"` // short hash
	Message string    `bson:"message"  json:"message"`
	Author  string    `bson:"author"   json:"author"`
	Date    time.Time `bson:"date"     json:"date"`
	HTMLURL string    `bson:"html_url" json:"html_url"`
}

// CommitSummary carries the recent commits plus an approximate total.
// Total is the sum of contributor contribution counts, which can diverge
// from the true commit count (merges, rebases); it is a deliberate
// best-effort estimate, not a bug.
type CommitSummary struct {
	Total  int      `bson:"total"  json:"total"`
	Recent []Commit `bson:"recent" json:"recent"`
}

// Contributor is one entry of the contributor list.
type Contributor struct {
	Login         string `bson:"login"          json:"login"`
	AvatarURL     string `bson:"avatar_url"     json:"avatar_url"`
	HTMLURL       string `bson:"html_url"       json:"html_url"`
	Contributions int    `bson:"contributions"  json:"contributions"`
}

// RepoStatus aggregates issue/PR/deployment counts. Each count is obtained
// independently and independently allowed to fail to zero.
type RepoStatus struct {
	OpenIssues   int `bson:"open_issues"   json:"open_issues"`
	ClosedIssues int `bson:"closed_issues" json:"closed_issues"`
	OpenPRs      int `bson:"open_prs"      json:"open_prs"`
	ClosedPRs    int `bson:"closed_prs"    json:"closed_prs"`
	Deployments  int `bson:"deployments"   json:"deployments"`
}

// Manifest is one detected dependency manifest.
type Manifest struct {
	Path            string   `bson:"path"              json:"path"`
	Raw             string   `bson:"raw"               json:"raw"` // truncated
	Dependencies    []string `bson:"dependencies"      json:"dependencies"`
	DevDependencies []string `bson:"dev_dependencies"  json:"dev_dependencies"`
}

// TechStack holds the detected frontend/backend manifests, either of which
// may be absent.
type TechStack struct {
	Frontend *Manifest `bson:"frontend,omitempty" json:"frontend,omitempty"`
	Backend  *Manifest `bson:"backend,omitempty"  json:"backend,omitempty"`
}

// TreeEntry is one flattened file-tree entry.
type TreeEntry struct {
	Path string `bson:"path" json:"path"`
	Type string `bson:"type" json:"type"` // "blob" | "tree"
	Size int    `bson:"size" json:"size"`
}

// KeyFile is one selected key file with truncated content.
type KeyFile struct {
	Path    string `bson:"path"    json:"path"`
	Content string `bson:"content" json:"content"`
}

// Route role tags form a closed vocabulary; the codec coerces anything the
// model invents outside this list.
const (
	RoleAuthentication = "Authentication"
	RoleDataFetching   = "Data Fetching"
	RoleCRUD           = "CRUD Operation"
	RoleUIRendering    = "UI Rendering"
	RoleFileProcessing = "File Processing"
	RoleThirdParty     = "Third-party Integration"
	RoleRealTime       = "Real-time"
	RoleNavigation     = "Navigation"
	RoleBackground     = "Background Processing"
)

// RouteRoles lists every valid lifecycle-role tag.
var RouteRoles = []string{
	RoleAuthentication, RoleDataFetching, RoleCRUD, RoleUIRendering,
	RoleFileProcessing, RoleThirdParty, RoleRealTime, RoleNavigation,
	RoleBackground,
}

// Route is one catalog entry produced by the route-catalog analysis.
type Route struct {
	Path          string `bson:"path"          json:"path"`
	Method        string `bson:"method"        json:"method"` // HTTP method or "PAGE"
	Functionality string `bson:"functionality" json:"functionality"`
	Contribution  string `bson:"contribution"  json:"contribution"`
	Role          string `bson:"role"          json:"role"`
}

// LLMAnalysis is the model-produced half of a repository analysis.
type LLMAnalysis struct {
	OverallFlow         string  `bson:"overall_flow"         json:"overall_flow"`
	ArchitectureDiagram string  `bson:"architecture_diagram" json:"architecture_diagram"`
	Routes              []Route `bson:"routes"               json:"routes"`
}

// RepositoryAnalysis is the persisted result of a full repository analysis.
// There is exactly one live document per repository; re-analysis replaces
// it in place (upsert by _id).
type RepositoryAnalysis struct {
	ID           string        `bson:"_id"           json:"id"` // "owner/name"
	Identity     RepoIdentity  `bson:"identity"      json:"identity"`
	Metadata     RepoMetadata  `bson:"metadata"      json:"metadata"`
	Commits      CommitSummary `bson:"commits"       json:"commits"`
	Contributors []Contributor `bson:"contributors"  json:"contributors"`
	Status       RepoStatus    `bson:"status"        json:"status"`
	TechStack    TechStack     `bson:"tech_stack"    json:"tech_stack"`
	FileTree     []TreeEntry   `bson:"file_tree"     json:"file_tree"`
	KeyFiles     []KeyFile     `bson:"key_files"     json:"key_files"`
	Analysis     LLMAnalysis   `bson:"analysis"      json:"analysis"`
	AnalyzedAt   time.Time     `bson:"analyzed_at"   json:"analyzed_at"`
}
