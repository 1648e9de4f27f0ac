// Package tasks implements the core iqdb business logic.
package tasks // import "github.com/Gavin1937/danbooru-iqdb/tasks"

import (
	"context"

	"github.com/Gavin1937/danbooru-iqdb/status"
)

type Task interface {
	Run(context.Context) status.S
}

// Tasks implement the Resettable interface if they want to run any sort of
// reset logic.  This includes things like clearing intermediate results.
type Resettable interface {
	// If there was a retriable error, this will be called before Run.
	ResetForRetry()
}

// Tasks implement the Messy interface if they have side effects outside of
// the normal database transactions.  CleanUp is always called exactly once,
// at the end of the task, regardless of success.
type Messy interface {
	CleanUp()
}
