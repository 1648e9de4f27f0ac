package tasks

import (
	"context"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/Gavin1937/danbooru-iqdb/status"
)

const maxTaskRetries = 3

type TaskRunner struct {
	run func(context.Context, Task) status.S
}

func TestTaskRunner(run func(context.Context, Task) status.S) *TaskRunner {
	return &TaskRunner{
		run: run,
	}
}

func (r *TaskRunner) Run(ctx context.Context, task Task) status.S {
	if r != nil && r.run != nil {
		return r.run(ctx, task)
	}
	return runTask(ctx, task)
}

func runTask(ctx context.Context, task Task) status.S {
	if messy, ok := task.(Messy); ok {
		defer messy.CleanUp()
	}
	var sts status.S
	for i := 0; i < maxTaskRetries; i++ {
		sts = task.Run(ctx)
		if sts == nil {
			return nil
		}
		if cause := sts.Cause(); cause != nil {
			if serr, ok := cause.(sqlite3.Error); ok {
				if serr.Code == sqlite3.ErrBusy || serr.Code == sqlite3.ErrLocked {
					if resettable, ok := task.(Resettable); ok {
						resettable.ResetForRetry()
					}
					continue
				}
			}
		}
		return sts
	}
	return status.Internalf(sts, "Failed to complete task %T after %d tries", task, maxTaskRetries)
}
