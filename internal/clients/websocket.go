package clients

import (
	"context"
	"fmt"

	"rent-tracking/internal/domain"
	ws "rent-tracking/internal/transport/websocket"
)

type WebSocketClient struct {
	hub *ws.Hub
}

func NewWebSocketClient(hub *ws.Hub) *WebSocketClient {
	return &WebSocketClient{
		hub: hub,
	}
}

// NotifyUser pushes an in-app notification to every open tab of the user.
func (c *WebSocketClient) NotifyUser(ctx context.Context, n domain.Notification) error {
	if c.hub == nil {
		return nil
	}

	message := &ws.Message{
		Type:    "notification",
		Channel: fmt.Sprintf("notify_user#%d", n.UserID),
		Data: map[string]any{
			"id":         n.ID,
			"type":       string(n.Type),
			"title":      n.Title,
			"message":    n.Message,
			"link":       n.Link,
			"created_at": n.CreatedAt,
		},
	}

	c.hub.Broadcast(n.UserID, message)
	return nil
}

func (c *WebSocketClient) NotifyReportReady(ctx context.Context, userID int64, reportID, url, fileName string) error {
	if c.hub == nil {
		return nil
	}

	message := &ws.Message{
		Type:    "report_ready",
		Channel: fmt.Sprintf("notify_user_when_report_ready#%d", userID),
		Data: map[string]any{
			"id":       reportID,
			"url":      url,
			"filename": fileName,
			"user_id":  userID,
		},
	}

	c.hub.Broadcast(userID, message)
	return nil
}
