package training

import (
	"go.uber.org/zap"

	"github.com/mossipcams/ha-ml-data-layer/internal/storage/models"
	"github.com/mossipcams/ha-ml-data-layer/internal/storage/sqlite"
)

// ScorerProvider loads a usable scorer model, or reports why none is
// available.
type ScorerProvider interface {
	LoadLatest() (*models.ScorerArtifactPayload, error)
}

// ArtifactLoader reads the newest scorer artifact from the latest-artifact
// view.
type ArtifactLoader struct {
	client *sqlite.Client
}

func NewArtifactLoader(client *sqlite.Client) *ArtifactLoader {
	return &ArtifactLoader{client: client}
}

func (l *ArtifactLoader) LoadLatest() (*models.ScorerArtifactPayload, error) {
	artifact, err := l.client.LatestScorerArtifact()
	if err != nil {
		return nil, err
	}
	return &artifact.Payload, nil
}

// LoadLatestOrFallback returns the provider's model, or the caller-chosen
// fallback when loading fails. The failure is logged, never swallowed
// silently.
func LoadLatestOrFallback(p ScorerProvider, fallback models.ScorerArtifactPayload, log *zap.Logger) models.ScorerArtifactPayload {
	payload, err := p.LoadLatest()
	if err != nil {
		log.Warn("falling back to caller-supplied scorer model", zap.Error(err))
		return fallback
	}
	return *payload
}
