package webui

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"pebfutar.app/internal/presentation"
)

const (
	clientBufferSize = 64
	pingInterval     = 30 * time.Second
	writeTimeout     = 5 * time.Second
	commandTimeout   = 5 * time.Second
)

func (webUI *WebUI) wsHandler(w http.ResponseWriter, r *http.Request) {
	// Only same-origin pages may connect.
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		webUI.Logger.Error("websocket accept failed", slog.String("error", err.Error()))
		return
	}

	client := NewClient(uuid.NewString(), clientBufferSize)
	webUI.Hub.Register(client)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go webUI.writeLoop(ctx, conn, client)

	webUI.readLoop(ctx, conn, client)
}

func (webUI *WebUI) readLoop(ctx context.Context, conn *websocket.Conn, client *Client) {
	defer func() {
		webUI.Hub.Unregister(client)
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		msgType, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure && !errors.Is(err, context.Canceled) {
				webUI.Logger.Debug("websocket read error", slog.String("client_id", client.ID), slog.String("error", err.Error()))
			}
			return
		}
		if msgType != websocket.MessageText {
			continue
		}

		// A presentation.Command, or {"type":"ping"}.
		var cmd presentation.Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			webUI.reply(client, Frame{Type: "error", Message: "invalid message: " + err.Error()})
			continue
		}
		if cmd.Kind == "ping" {
			webUI.reply(client, Frame{Type: "pong"})
			continue
		}

		cmdCtx, cancel := context.WithTimeout(ctx, commandTimeout)
		var execErr error
		err = webUI.Do(cmdCtx, func(c *presentation.Controller) { execErr = c.Execute(cmd) })
		cancel()
		if err == nil {
			err = execErr
		}
		if err != nil {
			webUI.Logger.Debug("command rejected", slog.String("client_id", client.ID),
				slog.String("command", string(cmd.Kind)), slog.String("error", err.Error()))
			webUI.reply(client, Frame{Type: "error", Message: err.Error()})
		}
	}
}

func (webUI *WebUI) writeLoop(ctx context.Context, conn *websocket.Conn, client *Client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case msg := <-client.Send:
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Write(writeCtx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

func (webUI *WebUI) reply(client *Client, f Frame) {
	data, err := json.Marshal(f)
	if err != nil {
		return
	}
	select {
	case client.Send <- data:
	default:
	}
}
