package models

import (
	"strings"
	"time"
)

// RouteAnalysis is the cached result of a single-route deep dive, keyed by
// (repo, route path). It lives in its own collection so that re-analyzing a
// repository never evicts per-route results.
type RouteAnalysis struct {
	RepoID            string    `bson:"repo_id"            json:"repo_id"`
	RoutePath         string    `bson:"route_path"         json:"route_path"`
	FlowVisualization string    `bson:"flow_visualization" json:"flow_visualization"`
	ExecutionTrace    string    `bson:"execution_trace"    json:"execution_trace"`
	CachedAt          time.Time `bson:"cached_at"          json:"cached_at"`
}

// Complete reports whether both payload fields are present. A record
// missing either one is treated as a cache miss so a partially written
// entry triggers recomputation instead of being served.
func (r RouteAnalysis) Complete() bool {
	return strings.TrimSpace(r.FlowVisualization) != "" &&
		strings.TrimSpace(r.ExecutionTrace) != ""
}

// ExecutionStep is one parsed step of an execution trace. Steps are derived
// from trace text on demand and never persisted.
type ExecutionStep struct {
	Number      int    `json:"number"`
	Title       string `json:"title"`
	Location    string `json:"location"`
	Language    string `json:"language"`
	Code        string `json:"code"`
	Explanation string `json:"explanation"`
}
