package broadcast

import (
    "net/http"
    "time"

    "github.com/gorilla/websocket"
    "github.com/labstack/echo/v4"
)

const (
    writeWait  = 5 * time.Second
    pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
    ReadBufferSize:  1024,
    WriteBufferSize: 1024,
    // Browsing clients connect from arbitrary origins; access control is
    // not needed for a read-only event stream of public invite state.
    CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWS upgrades GET /v1/invites/:id/events to a WebSocket and streams
// the invite's events as JSON until the client disconnects.  The read
// side is drained only to detect the close.
func ServeWS(hub *Hub) echo.HandlerFunc {
    return func(c echo.Context) error {
        inviteID := c.Param("id")
        conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
        if err != nil {
            return err
        }
        events, cancel := hub.Subscribe(inviteID)
        defer cancel()

        done := make(chan struct{})
        go func() {
            defer close(done)
            for {
                if _, _, err := conn.ReadMessage(); err != nil {
                    return
                }
            }
        }()

        ticker := time.NewTicker(pingPeriod)
        defer ticker.Stop()
        defer conn.Close()
        for {
            select {
            case ev, ok := <-events:
                if !ok {
                    return nil
                }
                _ = conn.SetWriteDeadline(time.Now().Add(writeWait))
                if err := conn.WriteJSON(ev); err != nil {
                    return nil
                }
            case <-ticker.C:
                _ = conn.SetWriteDeadline(time.Now().Add(writeWait))
                if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
                    return nil
                }
            case <-done:
                return nil
            }
        }
    }
}
