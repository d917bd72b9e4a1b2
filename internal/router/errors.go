package router

import (
	"fmt"
	"time"
)

// ErrReentrantCall is returned when a balance-mutating entry point is
// re-entered before the in-flight operation has finished.
var ErrReentrantCall = fmt.Errorf("reentrant call rejected")

// StillWaitingError reports that a total-withdrawal cycle is inside its
// notice window. ExecutableAt tells the caller when Phase 2 opens; retry
// policy is the caller's concern.
type StillWaitingError struct {
	ExecutableAt time.Time
}

func (e *StillWaitingError) Error() string {
	return fmt.Sprintf("total withdrawal still waiting, executable at %s",
		e.ExecutableAt.Format(time.RFC3339))
}
