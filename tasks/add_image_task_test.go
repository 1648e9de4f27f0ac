package tasks

import (
	"context"
	"testing"

	"google.golang.org/grpc/codes"

	"github.com/Gavin1937/danbooru-iqdb/schema"
)

func TestAddImageWorkflow(t *testing.T) {
	c := NewContainer(t)
	defer c.CleanUp()

	task := &AddImageTask{
		Index:    c.Index(),
		PostId:   7,
		FileData: c.TestPng(1),
	}
	runner := new(TaskRunner)
	if sts := runner.Run(context.Background(), task); sts != nil {
		t.Fatal(sts)
	}

	if task.AssignedPostId != 7 {
		t.Fatal("expected post id 7, got", task.AssignedPostId)
	}
	if len(task.ResultMd5) != 32 {
		t.Fatal("expected computed md5, got", task.ResultMd5)
	}
	if task.Sig == nil || task.Sig.Avglf[0] == 0 {
		t.Fatal("expected a live signature", task.Sig)
	}

	count, last := c.Index().Status()
	if count != 1 || last != 7 {
		t.Fatal("wrong status after add", count, last)
	}
}

func TestAddImageSuppliedMd5(t *testing.T) {
	c := NewContainer(t)
	defer c.CleanUp()

	task := &AddImageTask{
		Index:    c.Index(),
		PostId:   1,
		FileData: c.TestPng(1),
		Md5:      "ABCDEF00112233445566778899aabbcc",
	}
	runner := new(TaskRunner)
	if sts := runner.Run(context.Background(), task); sts != nil {
		t.Fatal(sts)
	}
	if task.ResultMd5 != "abcdef00112233445566778899aabbcc" {
		t.Fatal("md5 should be lowercased", task.ResultMd5)
	}
}

func TestAddImageBadInputs(t *testing.T) {
	c := NewContainer(t)
	defer c.CleanUp()
	runner := new(TaskRunner)

	sts := runner.Run(context.Background(), &AddImageTask{
		Index:  c.Index(),
		PostId: 1,
	})
	if sts == nil || sts.Code() != codes.InvalidArgument {
		t.Fatal("expected invalid argument for missing file, got", sts)
	}

	sts = runner.Run(context.Background(), &AddImageTask{
		Index:    c.Index(),
		PostId:   1,
		FileData: c.TestPng(1),
		Md5:      "tooshort",
	})
	if sts == nil || sts.Code() != codes.InvalidArgument {
		t.Fatal("expected invalid argument for bad md5, got", sts)
	}

	sts = runner.Run(context.Background(), &AddImageTask{
		Index:    c.Index(),
		PostId:   1,
		FileData: []byte("not an image"),
	})
	if sts == nil || sts.Code() != codes.InvalidArgument {
		t.Fatal("expected invalid argument for bad image, got", sts)
	}

	count, _ := c.Index().Status()
	if count != 0 {
		t.Fatal("failed adds must not mutate the index, count =", count)
	}
}

func TestAddImageConflicts(t *testing.T) {
	c := NewContainer(t)
	defer c.CleanUp()
	runner := new(TaskRunner)

	_, md5A := c.CreateImage(1, 1)

	sts := runner.Run(context.Background(), &AddImageTask{
		Index:    c.Index(),
		PostId:   1,
		FileData: c.TestPng(2),
	})
	if sts == nil || sts.Cause() != schema.ErrDuplicatePostId {
		t.Fatal("expected post id conflict, got", sts)
	}

	sts = runner.Run(context.Background(), &AddImageTask{
		Index:    c.Index(),
		PostId:   2,
		FileData: c.TestPng(3),
		Md5:      md5A,
	})
	if sts == nil || sts.Cause() != schema.ErrDuplicateMd5 {
		t.Fatal("expected md5 conflict, got", sts)
	}

	count, _ := c.Index().Status()
	if count != 1 {
		t.Fatal("conflicts must not mutate the index, count =", count)
	}
}

func TestAddImageReplace(t *testing.T) {
	c := NewContainer(t)
	defer c.CleanUp()
	runner := new(TaskRunner)

	c.CreateImage(1, 1)

	task := &AddImageTask{
		Index:    c.Index(),
		PostId:   1,
		FileData: c.TestPng(2),
		Replace:  true,
	}
	if sts := runner.Run(context.Background(), task); sts != nil {
		t.Fatal(sts)
	}

	im, sts := c.Index().LookupByPostId(1)
	if sts != nil {
		t.Fatal(sts)
	}
	if im == nil || im.Md5 != task.ResultMd5 {
		t.Fatal("expected replaced image", im)
	}
	count, _ := c.Index().Status()
	if count != 1 {
		t.Fatal("replace must keep one image, count =", count)
	}
}

func TestAddImageAutoPostId(t *testing.T) {
	c := NewContainer(t)
	defer c.CleanUp()
	runner := new(TaskRunner)

	c.CreateImage(4, 1)

	task := &AddImageTask{
		Index:    c.Index(),
		FileData: c.TestPng(2),
	}
	if sts := runner.Run(context.Background(), task); sts != nil {
		t.Fatal(sts)
	}
	if task.AssignedPostId != 5 {
		t.Fatal("expected auto post id 5, got", task.AssignedPostId)
	}
}
