package directory

import (
	"context"

	"github.com/atlascrm/fulfillment-backend/pkg/db/models"
	"github.com/google/uuid"
)

// Directory exposes the identity-service reads this module depends on.
// Agent eligibility and capability checks go through here so tests can
// supply fakes without touching global state.
type Directory interface {
	// ListEligibleAgents returns active agents ordered by id for
	// deterministic tie-breaks.
	ListEligibleAgents(ctx context.Context) ([]models.User, error)
	IsManager(ctx context.Context, userID uuid.UUID) (bool, error)
	FindUser(ctx context.Context, userID uuid.UUID) (*models.User, error)
}
