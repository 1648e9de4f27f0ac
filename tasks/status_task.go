package tasks

import (
	"context"

	"github.com/Gavin1937/danbooru-iqdb/imgdb"
	"github.com/Gavin1937/danbooru-iqdb/status"
)

var _ Task = &StatusTask{}

type StatusTask struct {
	// Deps
	Index *imgdb.IQDB

	// Results
	ImageCount int64
	LastPostId int64
}

func (t *StatusTask) Run(_ context.Context) status.S {
	t.ImageCount, t.LastPostId = t.Index.Status()
	return nil
}
