package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/notebook-intelligence/nbi-settings/pkg/types"
)

// Subscribe opens the change feed. The returned channel yields events until ctx is
// cancelled or the connection drops, and is then closed.
func (c *Client) Subscribe(ctx context.Context) (<-chan types.ConfigChangedEvent, error) {
	u, err := c.constructAPIEndpoint("/events")
	if err != nil {
		return nil, fmt.Errorf("failed to construct API endpoint: %w", err)
	}
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}

	header := http.Header{}
	if c.accessToken != "" {
		header.Set("Authorization", "Bearer "+c.accessToken)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u, header)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			return nil, c.parseErrorResponse(resp)
		}
		return nil, fmt.Errorf("failed to connect to %s: %w", u, err)
	}

	events := make(chan types.ConfigChangedEvent)
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()
	go func() {
		defer close(events)
		defer conn.Close()
		for {
			var ev types.ConfigChangedEvent
			if err := conn.ReadJSON(&ev); err != nil {
				return
			}
			if ev.Type != types.ConfigChangedEventType {
				continue
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return events, nil
}
