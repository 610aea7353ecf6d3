package ports

import "context"

// HealthChecker probes one backing dependency. A nil error means the
// dependency is serving.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}
