package server

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"secretline/internal/domain"
)

const writeWait = 5 * time.Second

type client struct {
	member domain.MemberID
	conn   *websocket.Conn
	mu     sync.Mutex
}

func (c *client) write(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// hub tracks the open sockets of every channel.
type hub struct {
	mu    sync.Mutex
	rooms map[domain.ChannelID]map[*client]struct{}
	log   *logrus.Entry
}

func newHub(log *logrus.Entry) *hub {
	return &hub{rooms: make(map[domain.ChannelID]map[*client]struct{}), log: log}
}

func (h *hub) add(id domain.ChannelID, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[id]
	if !ok {
		room = make(map[*client]struct{})
		h.rooms[id] = room
	}
	room[c] = struct{}{}
}

// remove drops c and deletes the room once it is empty.
func (h *hub) remove(id domain.ChannelID, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[id]
	if !ok {
		return
	}
	delete(room, c)
	if len(room) == 0 {
		delete(h.rooms, id)
	}
}

// broadcast sends payload to every socket of the channel except from. A
// failed write only affects that socket.
func (h *hub) broadcast(id domain.ChannelID, from *client, payload []byte) {
	h.mu.Lock()
	targets := make([]*client, 0, len(h.rooms[id]))
	for c := range h.rooms[id] {
		if c != from {
			targets = append(targets, c)
		}
	}
	h.mu.Unlock()

	for _, c := range targets {
		if err := c.write(payload); err != nil {
			h.log.WithError(err).WithFields(logrus.Fields{
				"channel_id": id,
				"member_id":  c.member,
			}).Warn("broadcast failed")
		}
	}
}
