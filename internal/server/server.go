// Package server exposes the backup/restore operations over HTTP, the
// standalone mode of the tool.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"backuprestore/internal/backup"
	"backuprestore/internal/logging"
	"backuprestore/internal/restore"
)

// DefaultAddr matches the original standalone server binding.
const DefaultAddr = ":8000"

// Server wires the managers into an HTTP API.
type Server struct {
	Backup  *backup.Manager
	Restore *restore.Manager
	Logger  *slog.Logger
}

// Router builds the route table:
//
//	GET  /backup/{service}/{object}   run one export, return its data
//	POST /backup                      run a full snapshot
//	POST /restore/{service}/{object}  import the posted JSON
//	GET  /snapshots                   list snapshot metadata, newest first
//	GET  /snapshots/{id}              one snapshot's metadata
//	POST /snapshots/{id}/restore      replay a whole snapshot
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/backup/{service}/{object}", s.handleExport).Methods(http.MethodGet)
	r.HandleFunc("/backup", s.handleSnapshot).Methods(http.MethodPost)
	r.HandleFunc("/restore/{service}/{object}", s.handleImport).Methods(http.MethodPost)
	r.HandleFunc("/snapshots", s.handleList).Methods(http.MethodGet)
	r.HandleFunc("/snapshots/{id}", s.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/snapshots/{id}/restore", s.handleRestore).Methods(http.MethodPost)
	return r
}

// Serve runs the API until ctx is canceled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}
	logger := logging.Ensure(s.Logger)

	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute, // exports of large realms take a while
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
