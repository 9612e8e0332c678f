// Package v1 serves the read-only legacy API. New clients use /api/v2.
package v1

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"ameliorate/application/queries"
	querybus "ameliorate/application/queries/bus"
	"ameliorate/pkg/common"
	pkgerrors "ameliorate/pkg/errors"
)

// Handler answers v1 read requests through the query bus
type Handler struct {
	queryBus *querybus.QueryBus
	errors   *pkgerrors.ErrorHandler
	logger   *zap.Logger
}

// NewRouter creates the v1 API router. It matches full /api/v1 paths and
// can be mounted as is.
func NewRouter(queryBus *querybus.QueryBus, errors *pkgerrors.ErrorHandler, logger *zap.Logger) *mux.Router {
	h := &Handler{queryBus: queryBus, errors: errors, logger: logger}

	router := mux.NewRouter()
	v1 := router.PathPrefix("/api/v1").Subrouter()
	v1.Use(versionHeaders)

	v1.HandleFunc("/topics/{username}/{title}", h.getTopic).Methods(http.MethodGet)
	v1.HandleFunc("/topics/{username}/{title}/diagram", h.getDiagram).Methods(http.MethodGet)
	v1.HandleFunc("/users/{username}/topics", h.listUserTopics).Methods(http.MethodGet)
	v1.HandleFunc("/health", healthCheck).Methods(http.MethodGet)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		errors.Handle(w, r, pkgerrors.NewNotFoundError("route"))
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		errors.HandleStatus(w, r, http.StatusMethodNotAllowed, "the v1 API is read-only")
	})
	return router
}

// getTopic returns the whole topic, which is what v1 clients expect from
// the topic URL
func (h *Handler) getTopic(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	data, err := querybus.Ask[*queries.TopicData](r.Context(), h.queryBus,
		&queries.GetTopicDataQuery{Username: vars["username"], Title: vars["title"]})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, data)
}

func (h *Handler) getDiagram(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	query := &queries.GetDiagramQuery{
		Username:    vars["username"],
		Title:       vars["title"],
		ClaimTreeID: r.URL.Query().Get("claimTree"),
	}
	result, err := querybus.Ask[*queries.DiagramResult](r.Context(), h.queryBus, query)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) listUserTopics(w http.ResponseWriter, r *http.Request) {
	params := common.ExtractPaginationParams(r)
	query := &queries.ListUserTopicsQuery{
		Username: mux.Vars(r)["username"],
		Page:     params.Page,
		PageSize: params.PageSize,
	}
	page, err := querybus.Ask[*common.PaginatedResult[queries.TopicView]](r.Context(), h.queryBus, query)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, page)
}

// versionHeaders marks v1 responses as deprecated
func versionHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-API-Version", "v1")
		w.Header().Set("X-API-Latest", "v2")
		w.Header().Set("X-API-Deprecated", "true")
		next.ServeHTTP(w, r)
	})
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "healthy", "version": "v1"})
}
