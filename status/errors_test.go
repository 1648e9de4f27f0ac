package status

import (
	"errors"
	"testing"

	"google.golang.org/grpc/codes"
)

func TestStatus(t *testing.T) {
	s := &status{
		msg:   "Foo",
		code:  codes.InvalidArgument,
		stack: getStack(),
		cause: errors.New("bad"),
	}
	s2 := &status{
		msg:   "Bar",
		code:  codes.NotFound,
		stack: getStack(),
		cause: s,
	}

	t.Log(s2.String())
}

func TestFromPassesThrough(t *testing.T) {
	s := AlreadyExists(nil, "dupe")
	if From(s) != s {
		t.Fatal("expected same status back")
	}

	err := errors.New("plain")
	s2 := From(err)
	if s2.Code() != codes.Unknown {
		t.Fatal("expected unknown code, got", s2.Code())
	}
	if s2.Cause() != err {
		t.Fatal("expected cause to be kept")
	}
}

// just check this doesn't over-recurse
func TestStatusSuppressed(t *testing.T) {
	s1 := InvalidArgument(nil, "Something wrong")
	t.Log(s1)

	s2 := InvalidArgument(s1, "Something wronger")
	t.Log(s2)

	s3 := InvalidArgument(errors.New("custom err"), "Wrongish")
	t.Log(s3)

	s5 := WithSuppressed(s1, Internal(nil, "can't close file"))
	t.Log(s5)

	s6 := WithSuppressed(s5, Internal(nil, "really can't close file"))
	t.Log(s6)
	if len(s6.Suppressed()) != 2 {
		t.Fatal("expected 2 suppressed errors", s6.Suppressed())
	}
}

func TestReplaceOrSuppress(t *testing.T) {
	var stscap S
	ReplaceOrSuppress(&stscap, NotFound(nil, "missing"))
	if stscap == nil || stscap.Code() != codes.NotFound {
		t.Fatal("expected not found", stscap)
	}

	ReplaceOrSuppress(&stscap, Internal(nil, "broken"))
	if stscap.Code() != codes.NotFound {
		t.Fatal("original status should win", stscap)
	}
	if len(stscap.Suppressed()) != 1 {
		t.Fatal("expected suppressed error", stscap)
	}
}
