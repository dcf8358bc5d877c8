package webhook

import (
	"sync"

	"github.com/korefinance/kore/app/repository"
	"github.com/korefinance/kore/internal/pkg/cache"
	"github.com/korefinance/kore/internal/pkg/collections"
	"github.com/korefinance/kore/internal/pkg/database"
	"github.com/korefinance/kore/internal/pkg/idempotency"
)

var (
	serviceInstance *Service
	serviceOnce     sync.Once
)

// GetService returns the process-wide webhook service. The Redis client
// may be nil when the cache is not set up; dedup and locking then
// degrade to database-only guarantees.
func GetService() *Service {
	serviceOnce.Do(func() {
		client := cache.GetClient()
		serviceInstance = NewService(
			repository.NewRepositories(database.GetDB()),
			idempotency.NewChecker(client),
			idempotency.NewLocker(client),
			collections.GetService(),
		)
	})
	return serviceInstance
}
