package status // import "github.com/Gavin1937/danbooru-iqdb/status"

import (
	"fmt"
	"runtime"
	"strings"

	"google.golang.org/grpc/codes"
)

type S interface {
	error
	fmt.Stringer
	Code() codes.Code
	Message() string
	Cause() error
	Stack() []uintptr
	Suppressed() []error
	dontImplementMe()
}

func From(err error) S {
	if s, ok := err.(S); ok {
		return s
	}
	return &status{
		code:  codes.Unknown,
		msg:   err.Error(),
		cause: err,
		stack: getStack(),
	}
}

// WithSuppressed attaches a secondary error to s, typically a failure during
// cleanup that should not mask the original status.
func WithSuppressed(s S, err error) S {
	if s == nil {
		panic("nil status")
	}
	if err == nil {
		panic("nil suppressed error")
	}
	return &status{
		code:       s.Code(),
		msg:        s.Message(),
		cause:      s.Cause(),
		stack:      s.Stack(),
		suppressed: append(append([]error(nil), s.Suppressed()...), err),
	}
}

// ReplaceOrSuppress sets *stscap to sts if empty, otherwise records sts as
// suppressed.  For use in deferred cleanup.
func ReplaceOrSuppress(stscap *S, sts S) {
	if *stscap == nil {
		*stscap = sts
	} else {
		*stscap = WithSuppressed(*stscap, sts)
	}
}

var _ S = &status{}

type status struct {
	code       codes.Code
	msg        string
	cause      error
	stack      []uintptr
	suppressed []error
}

func (s *status) Code() codes.Code {
	return s.code
}

func (s *status) Message() string {
	return s.msg
}

func (s *status) Cause() error {
	return s.cause
}

func (s *status) Stack() []uintptr {
	return s.stack
}

func (s *status) Suppressed() []error {
	return s.suppressed
}

func (s *status) Error() string {
	return fmt.Sprintf("%s: %s", s.code, s.msg)
}

func (s *status) Format(f fmt.State, r rune) {
	switch r {
	case 'v':
		f.Write([]byte(s.String()))
	default:
		f.Write([]byte("%!" + string(r) + "(bad fmt for " + s.Error() + ")"))
	}
}

func (s *status) String() string {
	var b strings.Builder
	s.stringer(&b)
	return b.String()
}

func (s *status) dontImplementMe() {
}

func (s *status) stringer(buf *strings.Builder) {
	buf.WriteString(s.Error())
	if len(s.stack) != 0 {
		frames := runtime.CallersFrames(s.stack)
		for {
			f, more := frames.Next()
			fmt.Fprintf(buf, "\n\t%s (%s:%d)", f.Function, f.File, f.Line)
			if !more {
				break
			}
		}
	}
	for _, sup := range s.suppressed {
		buf.WriteString("\nSuppressed: ")
		buf.WriteString(sup.Error())
	}
	if s.cause == nil {
		return
	}
	buf.WriteString("\nCaused by: ")
	if nexts, ok := s.cause.(*status); ok {
		nexts.stringer(buf)
	} else {
		buf.WriteString(s.cause.Error())
	}
}

func getStack() []uintptr {
	pc := make([]uintptr, 64)
	return pc[:runtime.Callers(3, pc)]
}

// Unknown error.  Errors raised by APIs that do not return enough error
// information may be converted to this error.
func Unknown(e error, v ...interface{}) S {
	return &status{
		code:  codes.Unknown,
		msg:   sprintln(v...),
		cause: e,
		stack: getStack(),
	}
}

// Unknown error.  Errors raised by APIs that do not return enough error
// information may be converted to this error.
func Unknownf(e error, format string, v ...interface{}) S {
	return &status{
		code:  codes.Unknown,
		msg:   fmt.Sprintf(format, v...),
		cause: e,
		stack: getStack(),
	}
}

// InvalidArgument indicates client specified an invalid argument.
// Note that this differs from FailedPrecondition.  It indicates arguments
// that are problematic regardless of the state of the system
// (e.g., a malformed image file).
func InvalidArgument(e error, v ...interface{}) S {
	return &status{
		code:  codes.InvalidArgument,
		msg:   sprintln(v...),
		cause: e,
		stack: getStack(),
	}
}

// InvalidArgumentf indicates client specified an invalid argument.
// Note that this differs from FailedPrecondition.  It indicates arguments
// that are problematic regardless of the state of the system
// (e.g., a malformed image file).
func InvalidArgumentf(e error, format string, v ...interface{}) S {
	return &status{
		code:  codes.InvalidArgument,
		msg:   fmt.Sprintf(format, v...),
		cause: e,
		stack: getStack(),
	}
}

// NotFound means some requested entity (e.g., an indexed image) was
// not found.
func NotFound(e error, v ...interface{}) S {
	return &status{
		code:  codes.NotFound,
		msg:   sprintln(v...),
		cause: e,
		stack: getStack(),
	}
}

// NotFoundf means some requested entity (e.g., an indexed image) was
// not found.
func NotFoundf(e error, format string, v ...interface{}) S {
	return &status{
		code:  codes.NotFound,
		msg:   fmt.Sprintf(format, v...),
		cause: e,
		stack: getStack(),
	}
}

// AlreadyExists means an attempt to create an entity failed because one
// already exists.
func AlreadyExists(e error, v ...interface{}) S {
	return &status{
		code:  codes.AlreadyExists,
		msg:   sprintln(v...),
		cause: e,
		stack: getStack(),
	}
}

// AlreadyExistsf means an attempt to create an entity failed because one
// already exists.
func AlreadyExistsf(e error, format string, v ...interface{}) S {
	return &status{
		code:  codes.AlreadyExists,
		msg:   fmt.Sprintf(format, v...),
		cause: e,
		stack: getStack(),
	}
}

// Internal errors.  Means some invariants expected by the underlying
// system have been broken.  If you see one of these errors,
// something is very broken.
func Internal(e error, v ...interface{}) S {
	return &status{
		code:  codes.Internal,
		msg:   sprintln(v...),
		cause: e,
		stack: getStack(),
	}
}

// Internal errors.  Means some invariants expected by the underlying
// system have been broken.  If you see one of these errors,
// something is very broken.
func Internalf(e error, format string, v ...interface{}) S {
	return &status{
		code:  codes.Internal,
		msg:   fmt.Sprintf(format, v...),
		cause: e,
		stack: getStack(),
	}
}

// DataLoss indicates unrecoverable data loss or corruption.
func DataLoss(e error, v ...interface{}) S {
	return &status{
		code:  codes.DataLoss,
		msg:   sprintln(v...),
		cause: e,
		stack: getStack(),
	}
}

// DataLossf indicates unrecoverable data loss or corruption.
func DataLossf(e error, format string, v ...interface{}) S {
	return &status{
		code:  codes.DataLoss,
		msg:   fmt.Sprintf(format, v...),
		cause: e,
		stack: getStack(),
	}
}

func sprintln(args ...interface{}) string {
	msg := fmt.Sprintln(args...)
	return msg[:len(msg)-1]
}
