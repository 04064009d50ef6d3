// Package notify keeps track of connected websocket clients per user and
// pushes small JSON events to them.
package notify

import (
	"encoding/json"
	"log"
	"strconv"
	"sync"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
)

const (
	TypeAlbumCover = "album.cover"

	// clientQueueSize events may wait per client, later ones are dropped
	clientQueueSize = 32
)

// SendFunc returns true if data was successfully sent
type SendFunc func([]byte) bool

// Client queues events for one connection. Publish never waits for the
// connection, Run does the actual sending.
type Client struct {
	send  SendFunc
	queue chan []byte
	done  chan struct{}
	once  sync.Once
}

func NewClient(send SendFunc) *Client {
	return &Client{
		send:  send,
		queue: make(chan []byte, clientQueueSize),
		done:  make(chan struct{}),
	}
}

// Run sends queued events until Close is called or a send fails
func (c *Client) Run() {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.queue:
			if !c.send(data) {
				c.Close()
				return
			}
		}
	}
}

func (c *Client) Close() {
	c.once.Do(func() { close(c.done) })
}

func (c *Client) enqueue(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.queue <- data:
		return true
	default:
		return false
	}
}

// Clients is needed as a user may be connected more than once
type Clients []*Client

type Event struct {
	Type  string `json:"type"`
	Stamp int64  `json:"stamp"`
	Data  any    `json:"data"`
}

type AlbumCover struct {
	AlbumID      uint64  `json:"album_id"`
	CoverImageID *uint64 `json:"cover_image_id"`
}

var (
	ConnectedUsers = cmap.New[Clients]()
)

func userKey(userID uint64) string {
	return strconv.FormatUint(userID, 10)
}

func AddClient(userID uint64, c *Client) {
	ConnectedUsers.Upsert(userKey(userID), Clients{c}, func(exist bool, valueInMap, newValue Clients) Clients {
		if exist {
			return append(valueInMap, c)
		}
		return newValue
	})
}

func RemoveClient(userID uint64, c *Client) {
	ConnectedUsers.Upsert(userKey(userID), Clients{}, func(exist bool, valueInMap, newValue Clients) Clients {
		if !exist {
			return newValue
		}
		for _, oc := range valueInMap {
			if oc == c {
				continue
			}
			newValue = append(newValue, oc)
		}
		return newValue
	})
	ConnectedUsers.RemoveCb(userKey(userID), func(key string, v Clients, exists bool) bool {
		return exists && len(v) == 0
	})
}

// Publish queues the event for every connected client of the user and
// returns the number of clients it was queued for. Clients that are
// closed or too far behind miss it.
func Publish(userID uint64, eventType string, data any) int {
	clients, ok := ConnectedUsers.Get(userKey(userID))
	if !ok || len(clients) == 0 {
		return 0
	}
	payload, err := json.Marshal(Event{Type: eventType, Stamp: time.Now().UnixMilli(), Data: data})
	if err != nil {
		log.Printf("Notify: %d, marshal error: %v", userID, err)
		return 0
	}
	queued := 0
	for _, c := range clients {
		if c.enqueue(payload) {
			queued++
		} else {
			log.Printf("Notify: %d, %s event dropped for a slow or closed client", userID, eventType)
		}
	}
	return queued
}

func PublishAlbumCover(userID, albumID uint64, coverImageID *uint64) {
	Publish(userID, TypeAlbumCover, AlbumCover{AlbumID: albumID, CoverImageID: coverImageID})
}
