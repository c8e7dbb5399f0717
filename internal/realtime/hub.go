// Package realtime pushes board changes to browsers over WebSocket. Clients
// join the room of one project and receive every message published to it.
package realtime

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
)

// Message types sent to clients.
const (
	TypeBoardState  = "board.state"
	TypeCardChanged = "card.changed"
	TypeTaskChanged = "task.changed"
	TypePing        = "ping"
	TypePong        = "pong"
)

// Message is the envelope for everything written to a socket.
type Message struct {
	Type      string `json:"type"`
	ProjectID uint64 `json:"project_id"`
	Data      any    `json:"data"`
	// User is the actor; that user's own sockets are skipped when set.
	User uint64 `json:"user,omitempty"`
}

type envelope struct {
	projectID uint64
	exclude   uint64
	payload   []byte
	// to limits delivery to one client
	to *Client
}

// Hub maintains per-project rooms of clients and fans messages out to them.
type Hub struct {
	rooms      map[uint64]map[*Client]struct{}
	broadcast  chan envelope
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	logger     *zap.Logger
}

// NewHub creates a hub. Call Run before registering clients.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		rooms:      make(map[uint64]map[*Client]struct{}),
		broadcast:  make(chan envelope, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Register adds a client to its project's room.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.send)
	}
}

// Unregister removes a client and closes its send channel.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish sends a message to every client in the project's room except the
// actor's own sockets. It drops the message once the hub has stopped.
func (h *Hub) Publish(msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal realtime message", zap.String("type", msg.Type), zap.Error(err))
		return
	}
	select {
	case h.broadcast <- envelope{projectID: msg.ProjectID, exclude: msg.User, payload: payload}:
	case <-h.done:
	}
}

func (h *Hub) reply(client *Client, msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- envelope{projectID: client.projectID, payload: payload, to: client}:
	case <-h.done:
	}
}

// Run serves the hub until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		for _, room := range h.rooms {
			for client := range room {
				close(client.send)
			}
		}
		h.rooms = nil
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			room, ok := h.rooms[client.projectID]
			if !ok {
				room = make(map[*Client]struct{})
				h.rooms[client.projectID] = room
			}
			room[client] = struct{}{}
			h.logger.Debug("client joined",
				zap.String("client_id", client.id),
				zap.Uint64("project_id", client.projectID),
				zap.Uint64("user_id", client.userID),
				zap.Int("room_size", len(room)),
			)
		case client := <-h.unregister:
			h.remove(client)
		case env := <-h.broadcast:
			for client := range h.rooms[env.projectID] {
				if env.to != nil && client != env.to {
					continue
				}
				if env.exclude != 0 && client.userID == env.exclude {
					continue
				}
				select {
				case client.send <- env.payload:
				default:
					h.logger.Warn("client send buffer full, dropping client",
						zap.Uint64("project_id", client.projectID),
						zap.Uint64("user_id", client.userID),
					)
					h.remove(client)
				}
			}
		}
	}
}

func (h *Hub) remove(client *Client) {
	room, ok := h.rooms[client.projectID]
	if !ok {
		return
	}
	if _, ok := room[client]; !ok {
		return
	}
	delete(room, client)
	close(client.send)
	if len(room) == 0 {
		delete(h.rooms, client.projectID)
	}
	h.logger.Debug("client left",
		zap.String("client_id", client.id),
		zap.Uint64("project_id", client.projectID),
		zap.Uint64("user_id", client.userID),
	)
}
