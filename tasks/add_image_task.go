package tasks

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"strings"

	"github.com/Gavin1937/danbooru-iqdb/haar"
	"github.com/Gavin1937/danbooru-iqdb/imaging"
	"github.com/Gavin1937/danbooru-iqdb/imgdb"
	"github.com/Gavin1937/danbooru-iqdb/status"
)

var _ Task = &AddImageTask{}

type AddImageTask struct {
	// Deps
	Index *imgdb.IQDB

	// Inputs
	// PostId 0 allocates last post id + 1.
	PostId   int64
	FileData []byte
	// Md5 overrides the digest of FileData when supplied by the caller.
	Md5     string
	Replace bool

	// Results
	AssignedPostId int64
	ResultMd5      string
	Sig            *haar.Signature
}

func (t *AddImageTask) Run(_ context.Context) status.S {
	if t.PostId < 0 {
		return status.InvalidArgumentf(nil, "bad post id %d", t.PostId)
	}
	if len(t.FileData) == 0 {
		return status.InvalidArgument(nil, "missing file data")
	}

	digest := strings.ToLower(t.Md5)
	if digest == "" {
		digest = md5Hex(t.FileData)
	} else if !isHex(digest) || len(digest) != 32 {
		return status.InvalidArgumentf(nil, "bad md5 %q", t.Md5)
	}

	sig, sts := imaging.SignatureFromBlob(t.FileData)
	if sts != nil {
		return sts
	}

	postId, sts := t.Index.AddImage(t.PostId, digest, sig, t.Replace)
	if sts != nil {
		return sts
	}

	t.AssignedPostId = postId
	t.ResultMd5 = digest
	t.Sig = sig
	return nil
}

func md5Hex(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

func isHex(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		default:
			return false
		}
	}
	return len(s) > 0
}
