package repositories

import (
	"context"

	"github.com/vsinha/subsidy/pkg/domain/entities"
)

// ConfigRepository stores the singleton valuation configuration
type ConfigRepository interface {
	// Active returns the stored configuration, creating the default one if absent
	Active(ctx context.Context) (entities.ValuationConfig, error)
	Save(ctx context.Context, cfg entities.ValuationConfig) error
}
