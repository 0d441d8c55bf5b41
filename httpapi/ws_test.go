package httpapi

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

func TestStreamWorkflowStatusRejectsEmptyWorkflowID(t *testing.T) {
	e := echo.New()
	h := &handlers{}
	e.GET("/ws", h.streamWorkflowStatus)

	srv := httptest.NewServer(e)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(watchRequest{WorkflowID: ""}))

	var resp map[string]string
	require.NoError(t, conn.ReadJSON(&resp))
	require.Contains(t, resp["error"], "workflow_id is required")
}
