package collections

import (
	"log"
	"sync"

	"github.com/korefinance/kore/internal/pkg/database"
	"github.com/korefinance/kore/internal/pkg/env"
	"github.com/korefinance/kore/internal/pkg/events"
	"github.com/korefinance/kore/internal/pkg/provider"
	"github.com/korefinance/kore/internal/pkg/status"
)

var (
	serviceInstance *Service
	serviceOnce     sync.Once
)

// GetService returns the process-wide collection service, building it
// on first use from the shared database handle and environment config.
func GetService() *Service {
	serviceOnce.Do(func() {
		normalizer, err := status.NewNormalizerFromFile(env.GetEnv("STATUS_MAP_FILE", ""))
		if err != nil {
			log.Printf("[Collections] status map file rejected, using defaults: %v", err)
			normalizer = status.NewNormalizer(nil)
		}
		serviceInstance = NewService(
			database.GetDB(),
			provider.NewClientFromEnv(),
			normalizer,
			events.NewPublisherFromEnv(),
		)
	})
	return serviceInstance
}
