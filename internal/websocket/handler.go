package websocket

import (
	"context"

	"insightdocs-be/internal/pkg/logger"
	"insightdocs-be/internal/service"
)

// Session is the server side of one chat connection.
type Session interface {
	Open(ctx context.Context, peer service.Peer) error
	Handle(ctx context.Context, raw []byte)
	Close(ctx context.Context)
}

// ServeWs attaches an authorized session to an upgraded connection and blocks
// until the peer disconnects.
func ServeWs(ctx context.Context, conn Conn, session Session, log logger.ILogger) {
	client := NewClient(conn, log)
	if err := session.Open(ctx, client); err != nil {
		log.Error("WS_CLIENT", "Failed to open chat session", map[string]interface{}{"error": err})
		_ = conn.Close()
		return
	}
	defer session.Close(ctx)

	client.Serve(ctx, session.Handle)
}
