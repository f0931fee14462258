// Package pprofserver exposes the runtime profiling endpoints on a loopback
// listener separate from the public server.
package pprofserver

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/pprof"
	"time"
)

func newServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	return mux
}

// Launch a standard pprof server at ipv6 loopback address ::1 and given port.
func Launch(port string, logger *slog.Logger) {
	go func() {
		addr := fmt.Sprintf("[::1]%s", port)
		srv := &http.Server{
			Addr:              addr,
			Handler:           newServeMux(),
			ReadHeaderTimeout: time.Second,
		}
		logger.Info("starting pprof server", "pprof_addr", addr)
		if err := srv.ListenAndServe(); err != nil {
			logger.Error("pprof server stopped", "err", err.Error())
		}
	}()
}
