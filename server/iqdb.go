// Package server is a library used for creating an iqdb server.
package server // import "github.com/Gavin1937/danbooru-iqdb/server"

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang/glog"

	"github.com/Gavin1937/danbooru-iqdb/handlers"
	"github.com/Gavin1937/danbooru-iqdb/imgdb"
	"github.com/Gavin1937/danbooru-iqdb/server/config"
	"github.com/Gavin1937/danbooru-iqdb/status"
)

type Server struct {
	index *imgdb.IQDB
	s     *http.Server
}

func (s *Server) setup(c *config.Config) status.S {
	index, sts := imgdb.Open(c.DbPath)
	if sts != nil {
		return sts
	}
	s.index = index

	mux := http.NewServeMux()
	handlers.AddAllHandlers(mux, &handlers.ServerConfig{
		Index: index,
	})

	s.s = &http.Server{
		Addr:    c.HttpSpec,
		Handler: logRequests(mux),
	}
	return nil
}

// StartAndWait serves until the process receives SIGINT or SIGTERM, then
// shuts down gracefully.
func (s *Server) StartAndWait(c *config.Config) (stscap status.S) {
	if sts := s.setup(c); sts != nil {
		return sts
	}
	defer func() {
		if err := s.index.Close(); err != nil {
			status.ReplaceOrSuppress(&stscap, status.From(err))
		}
	}()

	errc := make(chan error, 1)
	go func() {
		errc <- s.s.ListenAndServe()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)

	glog.Infof("Listening on %s.", c.HttpSpec)
	select {
	case err := <-errc:
		return status.Unknown(err, "server stopped")
	case sig := <-sigs:
		glog.Infof("Received signal %v.", sig)
	}

	glog.Info("Stopping server...")
	if err := s.s.Shutdown(context.Background()); err != nil {
		return status.Internal(err, "can't shut down server")
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)
		glog.Infof("%s \"%s %s %s\" %d", r.RemoteAddr, r.Method, r.URL.Path, r.Proto, rec.code)
	})
}
