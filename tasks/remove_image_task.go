package tasks

import (
	"context"

	"github.com/Gavin1937/danbooru-iqdb/imgdb"
	"github.com/Gavin1937/danbooru-iqdb/status"
)

var _ Task = &RemoveImageTask{}

type RemoveImageTask struct {
	// Deps
	Index *imgdb.IQDB

	// Inputs, exactly one of:
	PostId int64
	Md5    string

	// Results
	Found         bool
	RemovedPostId int64
	RemovedMd5    string
}

func (t *RemoveImageTask) Run(_ context.Context) status.S {
	postId := t.PostId
	if t.Md5 != "" {
		im, sts := t.Index.LookupByMd5(t.Md5)
		if sts != nil {
			return sts
		}
		if im == nil {
			t.RemovedMd5 = t.Md5
			return nil
		}
		postId = im.PostId
		t.RemovedMd5 = im.Md5
	} else {
		if postId <= 0 {
			return status.InvalidArgumentf(nil, "bad post id %d", postId)
		}
		im, sts := t.Index.LookupByPostId(postId)
		if sts != nil {
			return sts
		}
		if im != nil {
			t.RemovedMd5 = im.Md5
		}
	}
	t.RemovedPostId = postId

	found, sts := t.Index.RemoveImage(postId)
	if sts != nil {
		return sts
	}
	t.Found = found
	return nil
}
