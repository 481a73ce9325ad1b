// internal/realtime/client.go
package realtime

import (
	"encoding/json"
	"log"
)

// Client is one websocket consumer. The ws handler owns the connection;
// the hub callbacks only ever touch Send, so a slow socket can't stall
// the fanout loop.
type Client struct {
	UID  string
	Send chan []byte
}

func NewClient(uid string) *Client {
	return &Client{
		UID:  uid,
		Send: make(chan []byte, 256),
	}
}

// Push marshals and queues a message without blocking. If the buffer is
// full the message is dropped; the next snapshot supersedes it anyway.
func (c *Client) Push(v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Printf("Error marshaling client payload: %v", err)
		return
	}
	select {
	case c.Send <- b:
	default:
	}
}
