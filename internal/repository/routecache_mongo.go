package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"repolens/internal/models"
)

// RouteCacheMongo persists per-route deep dives, keyed by the compound
// (repo_id, route_path). It is deliberately a separate collection from the
// repository analyses: force-refreshing a repository must never evict the
// expensive per-route results.
type RouteCacheMongo struct {
	col *mongo.Collection
}

// NewRouteCacheRepository wires the "route_analyses" collection and ensures
// the compound unique index that makes upserts replace instead of duplicate.
func NewRouteCacheRepository(ctx context.Context, db *mongo.Database) (*RouteCacheMongo, error) {
	col := db.Collection("route_analyses")

	_, err := col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "repo_id", Value: 1},
			{Key: "route_path", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, err
	}

	return &RouteCacheMongo{col: col}, nil
}

// Find returns the cached deep dive for (repo, route). A stored record with
// an empty diagram or empty trace is reported as a miss so a partially
// written entry triggers recomputation instead of being served.
func (r *RouteCacheMongo) Find(ctx context.Context, repoID, routePath string) (models.RouteAnalysis, bool, error) {
	var cached models.RouteAnalysis
	err := r.col.FindOne(ctx, bson.M{"repo_id": repoID, "route_path": routePath}).Decode(&cached)
	if err == mongo.ErrNoDocuments {
		return models.RouteAnalysis{}, false, nil
	}
	if err != nil {
		return models.RouteAnalysis{}, false, err
	}
	if !cached.Complete() {
		return models.RouteAnalysis{}, false, nil
	}
	return cached, true, nil
}

// Upsert inserts or replaces the deep dive for its (repo_id, route_path).
func (r *RouteCacheMongo) Upsert(ctx context.Context, a models.RouteAnalysis) error {
	_, err := r.col.ReplaceOne(
		ctx,
		bson.M{"repo_id": a.RepoID, "route_path": a.RoutePath},
		a,
		options.Replace().SetUpsert(true),
	)
	return err
}
