// Package handlers translates HTTP requests into core tasks.
package handlers // import "github.com/Gavin1937/danbooru-iqdb/handlers"

import (
	"encoding/json"
	"net/http"

	"github.com/golang/glog"
	"google.golang.org/grpc/codes"

	"github.com/Gavin1937/danbooru-iqdb/imgdb"
	"github.com/Gavin1937/danbooru-iqdb/status"
)

type registerFunc func(mux *http.ServeMux, c *ServerConfig)

var (
	handlerFuncs []registerFunc
)

type ServerConfig struct {
	Index *imgdb.IQDB
}

func register(rf registerFunc) {
	handlerFuncs = append(handlerFuncs, rf)
}

func AddAllHandlers(mux *http.ServeMux, c *ServerConfig) {
	for _, rf := range handlerFuncs {
		rf(mux, c)
	}
}

var codeHttpMapping = map[codes.Code]int{
	codes.OK:              http.StatusOK,
	codes.InvalidArgument: http.StatusBadRequest,
	codes.NotFound:        http.StatusNotFound,
	codes.AlreadyExists:   http.StatusConflict,
	codes.Internal:        http.StatusInternalServerError,
	codes.DataLoss:        http.StatusInternalServerError,
	codes.Unknown:         http.StatusInternalServerError,
}

func httpStatus(code codes.Code) int {
	if mapping, present := codeHttpMapping[code]; present {
		return mapping
	}
	return http.StatusInternalServerError
}

func returnJSON(w http.ResponseWriter, code int, obj interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(obj); err != nil {
		glog.Errorf("Error writing JSON: %v", err)
	}
}

// returnTaskError renders err as an {error: ...} body with extra carrying
// any additional response fields.
func returnTaskError(w http.ResponseWriter, err error, extra map[string]interface{}) {
	glog.Errorf("Error in task: %v", err)
	sts := status.From(err)
	body := map[string]interface{}{
		"error": sts.Message(),
	}
	for k, v := range extra {
		body[k] = v
	}
	returnJSON(w, httpStatus(sts.Code()), body)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

func isHexDigits(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return len(s) > 0
}
