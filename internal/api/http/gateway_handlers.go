package httpapi

import (
	"net/http"

	appPrincipal "github.com/tradepost/tradepost/internal/application/principal"
	conv "github.com/tradepost/tradepost/internal/domain/conversation"
)

type gatewayEventRequest struct {
	Sender struct {
		ID        int64  `json:"id"`
		Username  string `json:"username,omitempty"`
		FirstName string `json:"first_name,omitempty"`
		LastName  string `json:"last_name,omitempty"`
	} `json:"sender"`
	Event conv.Event `json:"event"`
}

type gatewayEventResponse struct {
	Actions []conv.Action `json:"actions"`
}

// gatewayEvent feeds one chat event through the conversation engine and
// returns the replies the transport should deliver.
func (s *Server) gatewayEvent(w http.ResponseWriter, r *http.Request) {
	var req gatewayEventRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	if req.Sender.ID == 0 {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "sender.id is required")
		return
	}
	switch req.Event.Input {
	case conv.InputText, conv.InputSelection, conv.InputMedia:
	default:
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "unknown input kind")
		return
	}

	ident := appPrincipal.Identity{
		ID:        req.Sender.ID,
		Username:  req.Sender.Username,
		FirstName: req.Sender.FirstName,
		LastName:  req.Sender.LastName,
	}
	actions, err := s.controller.Handle(r.Context(), ident, req.Event)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	if actions == nil {
		actions = []conv.Action{}
	}
	respondJSON(w, http.StatusOK, gatewayEventResponse{Actions: actions})
}
