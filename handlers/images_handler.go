package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/Gavin1937/danbooru-iqdb/imgdb"
	"github.com/Gavin1937/danbooru-iqdb/tasks"
)

// ImagesHandler serves POST /images, POST /images/{post_id}, and
// DELETE /images/{post_id|md5}.
type ImagesHandler struct {
	// embeds
	http.Handler

	// deps
	Index  *imgdb.IQDB
	Runner *tasks.TaskRunner
}

func (h *ImagesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	selector := strings.TrimPrefix(r.URL.Path, "/images")
	selector = strings.TrimPrefix(selector, "/")

	switch r.Method {
	case http.MethodPost:
		h.add(w, r, selector)
	case http.MethodDelete:
		h.remove(w, r, selector)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *ImagesHandler) add(w http.ResponseWriter, r *http.Request, selector string) {
	var postId int64
	replace := false
	if selector != "" {
		if !isDigits(selector) {
			returnJSON(w, http.StatusBadRequest, map[string]interface{}{
				"error": "Input post_id must greater than 0.",
			})
			return
		}
		parsed, err := strconv.ParseInt(selector, 10, 64)
		if err != nil || parsed <= 0 {
			returnJSON(w, http.StatusBadRequest, map[string]interface{}{
				"error": "Input post_id must greater than 0.",
			})
			return
		}
		postId = parsed
		// An explicit post id may replace what is already stored there.
		replace = true
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		returnJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error": "`POST /images/:id?md5=M` requires a `file` param.",
		})
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		returnTaskError(w, err, nil)
		return
	}

	task := &tasks.AddImageTask{
		Index:    h.Index,
		PostId:   postId,
		FileData: data,
		Md5:      r.FormValue("md5"),
		Replace:  replace,
	}
	runner := h.Runner
	if runner == nil {
		runner = new(tasks.TaskRunner)
	}
	if sts := runner.Run(r.Context(), task); sts != nil {
		returnTaskError(w, sts, map[string]interface{}{
			"post_id": postId,
			"md5":     r.FormValue("md5"),
		})
		return
	}

	returnJSON(w, http.StatusOK, JsonImage{
		PostId:    task.AssignedPostId,
		Md5:       task.ResultMd5,
		Hash:      task.Sig.ToHash(),
		Signature: task.Sig,
	})
}

func (h *ImagesHandler) remove(w http.ResponseWriter, r *http.Request, selector string) {
	task := &tasks.RemoveImageTask{
		Index: h.Index,
	}
	switch {
	case len(selector) >= 1 && len(selector) <= 9 && isDigits(selector):
		postId, err := strconv.ParseInt(selector, 10, 64)
		if err != nil {
			returnTaskError(w, err, nil)
			return
		}
		task.PostId = postId
	case len(selector) == 32 && isHexDigits(selector):
		task.Md5 = strings.ToLower(selector)
	default:
		returnJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error": "Invalid request url, you should supply integer post_id or md5 hash string (32-digit).",
		})
		return
	}

	runner := h.Runner
	if runner == nil {
		runner = new(tasks.TaskRunner)
	}
	if sts := runner.Run(r.Context(), task); sts != nil {
		returnTaskError(w, sts, nil)
		return
	}
	if !task.Found {
		msg := "Image does not exist in database."
		if task.RemovedPostId > 0 {
			msg = fmt.Sprintf("(post_id: %d) %s", task.RemovedPostId, msg)
		}
		if len(task.RemovedMd5) == 32 {
			msg = fmt.Sprintf("(md5: %s) %s", task.RemovedMd5, msg)
		}
		returnJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error": msg,
		})
		return
	}

	returnJSON(w, http.StatusOK, map[string]interface{}{
		"post_id": task.RemovedPostId,
		"md5":     task.RemovedMd5,
	})
}

func init() {
	register(func(mux *http.ServeMux, c *ServerConfig) {
		h := &ImagesHandler{
			Index: c.Index,
		}
		mux.Handle("/images", h)
		mux.Handle("/images/", h)
	})
}
