package memory

import (
	"context"
	"sync"

	"github.com/vsinha/subsidy/pkg/domain/entities"
	"github.com/vsinha/subsidy/pkg/domain/repositories"
)

// ConfigRepository holds the singleton valuation config in memory
type ConfigRepository struct {
	mu  sync.Mutex
	cfg *entities.ValuationConfig
}

// NewConfigRepository creates an empty config repository; the default
// config is created on first read
func NewConfigRepository() *ConfigRepository {
	return &ConfigRepository{}
}

var _ repositories.ConfigRepository = (*ConfigRepository)(nil)

func (r *ConfigRepository) Active(_ context.Context) (entities.ValuationConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cfg == nil {
		cfg := entities.DefaultValuationConfig()
		r.cfg = &cfg
	}
	return *r.cfg, nil
}

func (r *ConfigRepository) Save(_ context.Context, cfg entities.ValuationConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfg = &cfg
	return nil
}
