package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/azulrosales/routing-solver/internal/model"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

// SolveStreamHandler handles GET /v1/solve/stream. The client sends one
// solve request as the first text frame; the server streams a progress
// event for every committed improvement and closes with a result event.
func (s *Server) SolveStreamHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(30 * time.Second))

	var req model.SolveRequest
	if err := conn.ReadJSON(&req); err != nil {
		_ = conn.WriteJSON(model.ProgressEvent{Type: "error", Error: err.Error()})
		return
	}

	// Improvements are reported from the search loop itself, so writes
	// here never race: the solve call below does not return until the
	// search is done.
	onImprovement := func(iteration, cost int) {
		_ = conn.WriteJSON(model.ProgressEvent{Type: "progress", Iteration: iteration, BestCost: cost})
	}

	resp, err := s.solve(r.Context(), &req, onImprovement)
	if err != nil {
		_ = conn.WriteJSON(model.ProgressEvent{Type: "error", Error: err.Error()})
		return
	}
	_ = conn.WriteJSON(model.ProgressEvent{Type: "result", Result: resp})
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
