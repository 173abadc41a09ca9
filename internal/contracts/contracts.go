package contracts

import (
	"go.uber.org/zap"

	"github.com/mossipcams/ha-ml-data-layer/internal/storage/models"
	"github.com/mossipcams/ha-ml-data-layer/internal/storage/sqlite"
)

// Service exposes the pull-only consumer contract: the leakage-safe pairing
// join and a read-only self-description of the versioned views.
type Service struct {
	client *sqlite.Client
	log    *zap.Logger
}

func NewService(client *sqlite.Client, log *zap.Logger) *Service {
	return &Service{client: client, log: log}
}

// GetValidFeatureLabelPairs returns every feature/label pairing permitted by
// the anti-leakage rule (feature window ends at or before the label's end),
// ordered by (window_end, feature id) ascending.
func (s *Service) GetValidFeatureLabelPairs() ([]models.FeatureLabelPair, error) {
	return s.client.QueryFeatureLabelPairs()
}

// ValidateContracts reports the contract version and the exposed view names
// so consumers can detect incompatible schema drift before querying.
func (s *Service) ValidateContracts() (*models.ContractReport, error) {
	version, _, err := s.client.GetMetadata("contract_version")
	if err != nil {
		return nil, err
	}
	views, err := s.client.ListViewNames()
	if err != nil {
		return nil, err
	}
	return &models.ContractReport{ContractVersion: version, Views: views}, nil
}
