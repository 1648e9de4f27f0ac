package handlers

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/Gavin1937/danbooru-iqdb/haar"
	"github.com/Gavin1937/danbooru-iqdb/imgdb"
	"github.com/Gavin1937/danbooru-iqdb/tasks"
)

const defaultQueryLimit = 10

// QueryHandler serves POST /query/{selector}, where the selector is "file"
// (multipart body), a 32-char md5, or a 533-char iqdb_ hash.
type QueryHandler struct {
	// embeds
	http.Handler

	// deps
	Index  *imgdb.IQDB
	Runner *tasks.TaskRunner
}

func (h *QueryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	selector := strings.TrimPrefix(r.URL.Path, "/query/")

	task := &tasks.QueryImagesTask{
		Index: h.Index,
		Limit: defaultQueryLimit,
	}

	switch {
	case selector == "file":
		file, _, err := r.FormFile("file")
		if err != nil {
			returnJSON(w, http.StatusBadRequest, map[string]interface{}{
				"error": "`POST /query/file` requires a `file` param.",
			})
			return
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			returnTaskError(w, err, nil)
			return
		}
		task.FileData = data
	case len(selector) == haar.HashLength && strings.HasPrefix(selector, "iqdb_") && isHexDigits(selector[5:]):
		task.Hash = selector
	case len(selector) == 32 && isHexDigits(selector):
		task.Md5 = strings.ToLower(selector)
	default:
		returnJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error": "Invalid request url, you should supply `file` with image file, md5 hash string (32-digit), or haar hash string (start with `iqdb_`, 533-digit).",
		})
		return
	}

	if raw := r.FormValue("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			returnJSON(w, http.StatusBadRequest, map[string]interface{}{
				"error": "Input limit must be a positive integer.",
			})
			return
		}
		task.Limit = limit
	}

	runner := h.Runner
	if runner == nil {
		runner = new(tasks.TaskRunner)
	}
	if sts := runner.Run(r.Context(), task); sts != nil {
		returnTaskError(w, sts, nil)
		return
	}

	returnJSON(w, http.StatusOK, interfaceMatches(task.Matches))
}

func init() {
	register(func(mux *http.ServeMux, c *ServerConfig) {
		mux.Handle("/query/", &QueryHandler{
			Index: c.Index,
		})
	})
}
