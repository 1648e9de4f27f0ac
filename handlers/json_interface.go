package handlers

import (
	"github.com/Gavin1937/danbooru-iqdb/haar"
	"github.com/Gavin1937/danbooru-iqdb/tasks"
)

type JsonImage struct {
	PostId    int64           `json:"post_id"`
	Md5       string          `json:"md5"`
	Hash      string          `json:"hash"`
	Signature *haar.Signature `json:"signature"`
}

type JsonMatch struct {
	PostId    int64           `json:"post_id"`
	Md5       string          `json:"md5"`
	Score     float32         `json:"score"`
	Hash      string          `json:"hash"`
	Signature *haar.Signature `json:"signature"`
}

func interfaceMatch(m tasks.MatchedImage) JsonMatch {
	return JsonMatch{
		PostId:    m.PostId,
		Md5:       m.Md5,
		Score:     m.Score,
		Hash:      m.Hash,
		Signature: m.Signature,
	}
}

func interfaceMatches(ms []tasks.MatchedImage) []JsonMatch {
	jms := make([]JsonMatch, 0, len(ms))
	for _, m := range ms {
		jms = append(jms, interfaceMatch(m))
	}
	return jms
}

type JsonStatus struct {
	ImageCount int64 `json:"image_count"`
	LastPostId int64 `json:"last_post_id"`
}
