package clock

import "time"

// Clock abstracts time.Now so services and workers can be tested with a
// fake clock.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// System returns the real clock.
func System() Clock { return systemClock{} }
