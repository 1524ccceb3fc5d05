package appraisal

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"dcad-backend/lib/scrapers/dcad"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(body)
	if err != nil {
		slog.Warn("failed to write response body", "err", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	var upstream *dcad.UpstreamError
	switch {
	case errors.Is(err, dcad.ErrInvalidAccountID):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.As(err, &upstream):
		writeJSON(w, http.StatusBadGateway, errorBody{Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
	}
}

// RegisterHandlers mounts the JSON API onto mux. A `refresh=1` query
// parameter on the detail and history routes bypasses the record cache.
func RegisterHandlers(mux *http.ServeMux, service Service) {
	mux.HandleFunc("GET /detail/{account_id}", func(w http.ResponseWriter, r *http.Request) {
		refresh := r.URL.Query().Get("refresh") == "1"
		record, err := service.GetDetail(r.Context(), r.PathValue("account_id"), refresh)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, record)
	})

	mux.HandleFunc("GET /history/{account_id}", func(w http.ResponseWriter, r *http.Request) {
		refresh := r.URL.Query().Get("refresh") == "1"
		history, err := service.GetHistory(r.Context(), r.PathValue("account_id"), refresh)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, history)
	})

	mux.HandleFunc("GET /accounts", func(w http.ResponseWriter, r *http.Request) {
		ids, err := service.CachedAccounts(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		if ids == nil {
			ids = []string{}
		}
		writeJSON(w, http.StatusOK, ids)
	})

	mux.HandleFunc("GET /search", func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		q := dcad.SearchQuery{
			Query:     query.Get("q"),
			City:      query.Get("city"),
			Direction: query.Get("direction"),
		}
		if q.Query == "" {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "missing required query parameter: q"})
			return
		}
		rows, err := service.Search(r.Context(), q)
		if err != nil {
			writeError(w, err)
			return
		}
		if rows == nil {
			rows = []dcad.SearchResultRow{}
		}
		writeJSON(w, http.StatusOK, rows)
	})
}
