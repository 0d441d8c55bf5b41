package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/liquidinvestigations/hoover3-sub000/taskrt"
)

// statusPollInterval is how often streamWorkflowStatus re-checks a watched
// workflow's run status, matching the cadence of the teacher's
// coordinator.go pingLoop ticker (adapted here to poll run state instead of
// sending keepalive pings, since this hub has no connected-peer registry to
// ping — one goroutine per connection, not a shared fan-out).
const statusPollInterval = 2 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// watchRequest is the first (and only) client->server message a caller
// sends after upgrading: which workflow to watch. One socket watches one
// workflow, matching db_explorer's request/response-per-connection shape
// rather than coordinator.go's multi-workflow multiplexed protocol, since
// this is a read-only status feed, not a bidirectional control channel.
type watchRequest struct {
	WorkflowID string `json:"workflow_id"`
}

// statusUpdate is one message pushed to the client: the workflow's latest
// known status. terminal is true once Status is Completed or Failed, after
// which the server closes the connection.
type statusUpdate struct {
	WorkflowID string           `json:"workflow_id"`
	Status     taskrt.RunStatus `json:"status"`
	Terminal   bool             `json:"terminal"`
}

// streamWorkflowStatus implements the workflow-status websocket stream
// (SPEC_FULL.md §6): upgrades the connection, reads the workflow_id to
// watch, then polls taskrt for status transitions until the workflow
// reaches a terminal state or the client disconnects. Grounded on
// coordinator.go's connectionLoop/readLoop/pingLoop split, collapsed to a
// single per-connection loop since there is no reconnect concern on the
// server side of the socket.
func (h *handlers) streamWorkflowStatus(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	var req watchRequest
	if err := conn.ReadJSON(&req); err != nil {
		return nil
	}
	if req.WorkflowID == "" {
		conn.WriteJSON(map[string]string{"error": "workflow_id is required"})
		return nil
	}

	ctx := c.Request().Context()
	ticker := time.NewTicker(statusPollInterval)
	defer ticker.Stop()

	var lastStatus taskrt.RunStatus
	for {
		status, err := h.deps.TaskClient.GetStatus(ctx, req.WorkflowID)
		if err != nil {
			conn.WriteJSON(map[string]string{"error": err.Error()})
			return nil
		}

		if status != lastStatus {
			terminal := status.IsTerminal()
			if err := conn.WriteJSON(statusUpdate{WorkflowID: req.WorkflowID, Status: status, Terminal: terminal}); err != nil {
				return nil
			}
			lastStatus = status
			if terminal {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
