package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"backuprestore/internal/backup"
	"backuprestore/internal/logging"
)

// envelope is the response wrapper every operation endpoint uses.
type envelope struct {
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result,omitempty"`
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	svc, object := vars["service"], vars["object"]

	data, err := s.Backup.ExportObject(r.Context(), svc, object)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{
		Message: fmt.Sprintf("Export %s completed successfully", object),
		Result:  data,
	})
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	svc, object := vars["service"], vars["object"]

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 64<<20))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("read request body: %w", err))
		return
	}
	if !json.Valid(body) {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("request body is not valid JSON"))
		return
	}

	if err := s.Restore.ImportObject(r.Context(), svc, object, body); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{
		Message: fmt.Sprintf("Import %s completed successfully", object),
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	var opts backup.Options
	if r.Body != nil {
		// An empty body means default options.
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err)
			return
		}
		if len(body) > 0 {
			if err := json.Unmarshal(body, &opts); err != nil {
				s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode snapshot options: %w", err))
				return
			}
		}
	}

	meta, err := s.Backup.Backup(r.Context(), opts)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, meta)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	snapshots, err := s.Restore.List(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if snapshots == nil {
		snapshots = []backup.Metadata{}
	}
	s.writeJSON(w, http.StatusOK, snapshots)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	meta, err := s.Restore.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	s.writeJSON(w, http.StatusOK, meta)
}

func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.Restore.Restore(r.Context(), id); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{
		Message: fmt.Sprintf("Restore of snapshot %s completed successfully", id),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Ensure(s.Logger).Error("write response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	logging.Ensure(s.Logger).Error("request failed", "status", status, "error", err)
	s.writeJSON(w, status, map[string]string{"detail": err.Error()})
}
