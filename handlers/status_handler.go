package handlers

import (
	"net/http"

	"github.com/Gavin1937/danbooru-iqdb/imgdb"
	"github.com/Gavin1937/danbooru-iqdb/tasks"
)

// StatusHandler serves GET /status.
type StatusHandler struct {
	// embeds
	http.Handler

	// deps
	Index  *imgdb.IQDB
	Runner *tasks.TaskRunner
}

func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	task := &tasks.StatusTask{
		Index: h.Index,
	}
	runner := h.Runner
	if runner == nil {
		runner = new(tasks.TaskRunner)
	}
	if sts := runner.Run(r.Context(), task); sts != nil {
		returnTaskError(w, sts, nil)
		return
	}

	returnJSON(w, http.StatusOK, JsonStatus{
		ImageCount: task.ImageCount,
		LastPostId: task.LastPostId,
	})
}

func init() {
	register(func(mux *http.ServeMux, c *ServerConfig) {
		mux.Handle("/status", &StatusHandler{
			Index: c.Index,
		})
	})
}
