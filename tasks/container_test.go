package tasks

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"testing"

	"github.com/Gavin1937/danbooru-iqdb/imgdb"
)

type container struct {
	t     *testing.T
	index *imgdb.IQDB
}

func NewContainer(t *testing.T) *container {
	t.Helper()
	x, sts := imgdb.Open(filepath.Join(t.TempDir(), "iqdb.sqlite"))
	if sts != nil {
		t.Fatal(sts)
	}
	return &container{t: t, index: x}
}

func (c *container) CleanUp() {
	if err := c.index.Close(); err != nil {
		c.t.Error(err)
	}
}

func (c *container) Index() *imgdb.IQDB {
	return c.index
}

// TestPng renders a small deterministic test card.  Different seeds give
// visually different images.
func (c *container) TestPng(seed uint8) []byte {
	im := image.NewNRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			im.Set(x, y, color.NRGBA{
				R: uint8(x*8) + seed,
				G: uint8(y*8) ^ seed,
				B: seed,
				A: 255,
			})
		}
	}
	var b bytes.Buffer
	if err := png.Encode(&b, im); err != nil {
		c.t.Fatal(err)
	}
	return b.Bytes()
}

// CreateImage adds a test image and returns its assigned post id and md5.
func (c *container) CreateImage(postId int64, seed uint8) (int64, string) {
	task := &AddImageTask{
		Index:    c.index,
		PostId:   postId,
		FileData: c.TestPng(seed),
	}
	runner := new(TaskRunner)
	if sts := runner.Run(context.Background(), task); sts != nil {
		c.t.Fatal(sts)
	}
	return task.AssignedPostId, task.ResultMd5
}
