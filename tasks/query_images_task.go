package tasks

import (
	"context"

	"github.com/Gavin1937/danbooru-iqdb/haar"
	"github.com/Gavin1937/danbooru-iqdb/imgdb"
	"github.com/Gavin1937/danbooru-iqdb/status"
)

var _ Task = &QueryImagesTask{}

// MatchedImage is one query result with its catalog details resolved.
type MatchedImage struct {
	PostId    int64
	Md5       string
	Score     float32
	Hash      string
	Signature *haar.Signature
}

type QueryImagesTask struct {
	// Deps
	Index *imgdb.IQDB

	// Inputs, exactly one of:
	FileData []byte
	Hash     string
	Md5      string

	Limit int

	// Results
	Matches []MatchedImage
}

func (t *QueryImagesTask) Run(_ context.Context) status.S {
	if t.Limit <= 0 {
		return status.InvalidArgumentf(nil, "bad limit %d", t.Limit)
	}

	var matches []imgdb.Match
	switch {
	case len(t.FileData) != 0:
		var sts status.S
		matches, sts = t.Index.QueryFromBlob(t.FileData, t.Limit)
		if sts != nil {
			return sts
		}
	case t.Hash != "":
		sig, sts := haar.FromHash(t.Hash)
		if sts != nil {
			return sts
		}
		matches, sts = t.Index.QueryFromSignature(sig, t.Limit)
		if sts != nil {
			return sts
		}
	case t.Md5 != "":
		im, sts := t.Index.LookupByMd5(t.Md5)
		if sts != nil {
			return sts
		}
		if im == nil {
			return status.InvalidArgument(nil, "Couldn't find image from supplied hash.")
		}
		sig, sts := im.Haar()
		if sts != nil {
			return sts
		}
		matches, sts = t.Index.QueryFromSignature(sig, t.Limit)
		if sts != nil {
			return sts
		}
	default:
		return status.InvalidArgument(nil, "missing query input")
	}

	// Resolve catalog details, dropping duplicate post ids.
	t.Matches = make([]MatchedImage, 0, len(matches))
	seen := make(map[int64]bool, len(matches))
	for _, m := range matches {
		if len(t.Matches) >= t.Limit {
			break
		}
		if seen[m.PostId] {
			continue
		}
		seen[m.PostId] = true

		im, sts := t.Index.LookupByPostId(m.PostId)
		if sts != nil {
			return sts
		}
		if im == nil {
			// Raced with a concurrent remove.
			continue
		}
		sig, sts := im.Haar()
		if sts != nil {
			return sts
		}
		t.Matches = append(t.Matches, MatchedImage{
			PostId:    m.PostId,
			Md5:       im.Md5,
			Score:     m.Score,
			Hash:      sig.ToHash(),
			Signature: sig,
		})
	}
	return nil
}
