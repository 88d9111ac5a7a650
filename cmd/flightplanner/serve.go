package main

import (
	"net/http"
	"time"

	"github.com/codrone/flightplanner/internal/server"
)

// httpListen runs the planner server until the process is killed.
func httpListen(addr string, srv *server.Server) error {
	s := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s.ListenAndServe()
}
