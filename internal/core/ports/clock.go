package ports

import "time"

// Clock abstracts the wall-clock time source so window arithmetic is
// testable with a fixed time. Cross-device clock drift is an accepted
// source of minor inaccuracy; it is not corrected here.
type Clock interface {
	Now() time.Time
}
