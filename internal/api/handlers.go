package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/tejas-estimator/internal/artifact"
	"github.com/sells-group/tejas-estimator/internal/estimate"
	"github.com/sells-group/tejas-estimator/internal/model"
)

type errorResponse struct {
	Error string `json:"error"`
}

type jurisdictionResponse struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := estimate.Request{
		Jurisdiction: q.Get("county"),
		Address:      q.Get("address"),
		QuickRefID:   q.Get("quickrefid"),
		Artifact:     q.Get("artifact"),
	}

	res, err := s.svc.Estimate(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	rec := res.Record
	if res.Token != "" {
		rec.ArtifactURL = s.opts.PublicURL + "/artifacts/" + res.Token
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleArtifact(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Artifact not found"})
		return
	}

	a, err := s.store.Get(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		if eris.Is(err, artifact.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "Artifact not found"})
			return
		}
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", a.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", a.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(a.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(a.Data)
}

func (s *Server) handleJurisdictions(w http.ResponseWriter, _ *http.Request) {
	all := s.svc.Registry().All()
	out := make([]jurisdictionResponse, 0, len(all))
	for _, j := range all {
		out = append(out, jurisdictionResponse{Key: j.Key, Name: j.Name})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	body := map[string]any{"status": "ok"}
	if s.opts.Checker != nil {
		body["datastores"] = s.opts.Checker.Status()
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleOpenAPI(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, openAPIDocument(s.opts.PublicURL, s.svc.Registry().Keys()))
}

// StatusFor maps an error to its HTTP status.
func StatusFor(err error) int {
	switch {
	case eris.Is(err, model.ErrInvalidInput):
		return http.StatusBadRequest
	case eris.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case eris.Is(err, model.ErrDatastoreUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the caller-facing text for err. Internal errors are not
// described.
func PublicMessage(err error) string {
	switch StatusFor(err) {
	case http.StatusBadRequest:
		root := model.ErrInvalidInput.Error()
		msg := strings.TrimSuffix(err.Error(), ": "+root)
		msg = strings.TrimPrefix(msg, root+": ")
		if msg == root {
			msg = ""
		}
		if msg == "" {
			return "Invalid input"
		}
		return strings.ToUpper(msg[:1]) + msg[1:]
	case http.StatusNotFound:
		return "No parcels found"
	case http.StatusBadGateway:
		return "Parcel datastore unavailable"
	default:
		return "Internal error"
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		zap.L().Error("api: request failed",
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	writeJSON(w, status, errorResponse{Error: PublicMessage(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("api: encode response", zap.Error(err))
	}
}
