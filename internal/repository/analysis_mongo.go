package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"repolens/internal/models"
)

// AnalysisMongo provides Mongo-backed persistence for repository-level
// analyses. One document per repository, keyed by "owner/name"; writes are
// whole-document upserts, so re-analysis replaces in place and concurrent
// writers degrade to last-writer-wins.
type AnalysisMongo struct {
	col *mongo.Collection
}

// NewAnalysisRepository returns an AnalysisMongo operating on the
// "repo_analyses" collection.
func NewAnalysisRepository(db *mongo.Database) *AnalysisMongo {
	return &AnalysisMongo{col: db.Collection("repo_analyses")}
}

// FindByIdentity returns the stored analysis for the identity. Absence is
// not an error: the second return value reports whether a document exists.
func (r *AnalysisMongo) FindByIdentity(ctx context.Context, id models.RepoIdentity) (models.RepositoryAnalysis, bool, error) {
	var analysis models.RepositoryAnalysis
	err := r.col.FindOne(ctx, bson.M{"_id": id.ID()}).Decode(&analysis)
	if err == mongo.ErrNoDocuments {
		return models.RepositoryAnalysis{}, false, nil
	}
	if err != nil {
		return models.RepositoryAnalysis{}, false, err
	}
	return analysis, true, nil
}

// Upsert inserts or fully replaces the analysis with the same _id.
func (r *AnalysisMongo) Upsert(ctx context.Context, a models.RepositoryAnalysis) error {
	_, err := r.col.ReplaceOne(
		ctx,
		bson.M{"_id": a.ID},
		a,
		options.Replace().SetUpsert(true),
	)
	return err
}
