// Package api serves the query endpoint and post-import status over HTTP.
package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/gorilla/mux"

	"github.com/roach88/datastore/internal/ir"
	"github.com/roach88/datastore/internal/query"
	"github.com/roach88/datastore/internal/translate"
)

// MaxBodyBytes caps the size of a query document.
const MaxBodyBytes = 1 << 20

// QueryIDHeader carries the ID of the normalized query on query responses.
const QueryIDHeader = "X-Query-Id"

// QueryRunner executes raw query documents. *query.Service implements it.
type QueryRunner interface {
	Run(ctx context.Context, raw []byte) (*query.Response, error)
}

// ResultReader reads stored post-import results. *datastore.Store implements it.
type ResultReader interface {
	ReadResults(ctx context.Context, identifier string) ([]ir.PostImportRecord, error)
}

// Handler returns the router for the datastore API.
func Handler(queries QueryRunner, results ResultReader) http.Handler {
	svr := &server{queries: queries, results: results}

	router := mux.NewRouter()
	router.HandleFunc("/health", svr.getHealth).Methods("GET").Name("GetHealth")
	router.HandleFunc("/api/1/datastore/query", svr.postQuery).Methods("POST").Name("PostQuery")
	router.HandleFunc("/api/1/datastore/imports/{identifier}", svr.getImports).Methods("GET").Name("GetImports")
	return router
}

type server struct {
	queries QueryRunner
	results ResultReader
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Message string            `json:"message"`
	Code    string            `json:"code,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// ImportsResponse is the body of GET /imports/{identifier}.
type ImportsResponse struct {
	Identifier string                `json:"identifier"`
	Results    []ir.PostImportRecord `json:"results"`
}

// GET /health
func (s *server) getHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": ir.EngineVersion})
}

// POST /api/1/datastore/query[?format=csv]
//
// CSV is written when either the format parameter or the document's
// format field asks for it.
func (s *server) postQuery(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Message: err.Error()})
		return
	}

	resp, err := s.queries.Run(r.Context(), raw)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set(QueryIDHeader, resp.ID)
	if wantsCSV(r, resp) {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		if err := resp.WriteCSV(w); err != nil {
			slog.Error("writing csv response", "error", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// GET /api/1/datastore/imports/{identifier}
func (s *server) getImports(w http.ResponseWriter, r *http.Request) {
	identifier := mux.Vars(r)["identifier"]

	records, err := s.results.ReadResults(r.Context(), identifier)
	if err != nil {
		writeError(w, err)
		return
	}
	if len(records) == 0 {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Message: "No import results for " + identifier + "."})
		return
	}
	writeJSON(w, http.StatusOK, ImportsResponse{Identifier: identifier, Results: records})
}

func wantsCSV(r *http.Request, resp *query.Response) bool {
	if r.URL.Query().Get("format") == "csv" {
		return true
	}
	return resp.Query != nil && resp.Query.Format == "csv"
}

// writeError maps request errors to 400 and everything else to 500.
func writeError(w http.ResponseWriter, err error) {
	var qe *translate.QueryError
	if errors.As(err, &qe) && qe.IsValidation() {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Message: qe.Message,
			Code:    string(qe.Code),
			Details: qe.Details,
		})
		return
	}

	slog.Error("request failed", "error", err)
	body := ErrorResponse{Message: "Internal server error."}
	if qe != nil {
		body.Code = string(qe.Code)
	}
	writeJSON(w, http.StatusInternalServerError, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("writing json response", "error", err)
	}
}
