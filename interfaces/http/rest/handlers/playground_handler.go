package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"ameliorate/application/queries"
	querybus "ameliorate/application/queries/bus"
	"ameliorate/domain/diagram"
	"ameliorate/pkg/common"
	pkgerrors "ameliorate/pkg/errors"
)

// PlaygroundHandler derives diagrams for graphs that only exist on the
// client
type PlaygroundHandler struct {
	queryBus *querybus.QueryBus
	errors   *pkgerrors.ErrorHandler
	logger   *zap.Logger
}

// NewPlaygroundHandler creates a new playground handler
func NewPlaygroundHandler(queryBus *querybus.QueryBus, errors *pkgerrors.ErrorHandler, logger *zap.Logger) *PlaygroundHandler {
	return &PlaygroundHandler{queryBus: queryBus, errors: errors, logger: logger}
}

// PlaygroundDiagramRequest is the body of POST /playground/diagram
type PlaygroundDiagramRequest struct {
	State      diagram.TopicState `json:"state"`
	SelectedID string             `json:"selectedId,omitempty"`
}

// DeriveDiagram handles POST /playground/diagram
func (h *PlaygroundHandler) DeriveDiagram(w http.ResponseWriter, r *http.Request) {
	var req PlaygroundDiagramRequest
	if err := common.ParseJSONBody(w, r, &req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	result, err := querybus.Ask[*queries.DiagramResult](r.Context(), h.queryBus,
		&queries.DerivePlaygroundDiagramQuery{State: req.State, SelectedID: req.SelectedID})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	h.logger.Debug("Playground diagram derived",
		zap.Int("nodes", len(result.Diagram.Nodes)),
		zap.Int("edges", len(result.Diagram.Edges)),
	)
	common.RespondJSON(w, http.StatusOK, result)
}
