package handlers

import (
	"gallery/models"
	"gallery/notify"
	"log"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	socketWriteTimeout = 10 * time.Second
	socketReadTimeout  = 2 * time.Minute
)

// upgrader keeps gorilla's same-origin check, the socket is authenticated by the session cookie alone
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Events keeps a websocket open for the user and forwards album cover changes to it.
// Clients may send "ping" at any time and get "pong" back.
func Events(c *gin.Context, user *models.User) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Events: %d, upgrade error: %v", user.ID, err)
		return
	}
	defer conn.Close()

	var writeMutex sync.Mutex
	isConnected := true
	write := func(messageType int, data []byte) bool {
		writeMutex.Lock()
		defer writeMutex.Unlock()
		if !isConnected {
			return false
		}
		_ = conn.SetWriteDeadline(time.Now().Add(socketWriteTimeout))
		if err := conn.WriteMessage(messageType, data); err != nil {
			log.Printf("Events: %d, write error: %v", user.ID, err)
			isConnected = false
			return false
		}
		return true
	}
	client := notify.NewClient(func(data []byte) bool {
		return write(websocket.TextMessage, data)
	})
	go client.Run()
	defer client.Close()
	notify.AddClient(user.ID, client)
	defer notify.RemoveClient(user.ID, client)

	for {
		_ = conn.SetReadDeadline(time.Now().Add(socketReadTimeout))
		mt, message, err := conn.ReadMessage()
		if err != nil {
			writeMutex.Lock()
			isConnected = false
			writeMutex.Unlock()
			break
		}
		if string(message) == "ping" {
			write(mt, []byte("pong"))
		}
	}
}
