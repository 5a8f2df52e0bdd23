package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/fasthttp/websocket"
)

// Hub difunde los eventos de capacitación (progreso de video, envíos de quiz)
// a los clientes conectados. Es la superficie de callbacks del anfitrión:
// onTimeUpdate, onVideoEnded, onPlay/onPause y onComplete viajan por aquí.
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mutex      sync.RWMutex
}

type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// TimeUpdateEvent avance legítimo de reproducción
type TimeUpdateEvent struct {
	VideoID     string  `json:"videoId"`
	CurrentTime float64 `json:"currentTime"`
	Duration    float64 `json:"duration"`
}

// PlaybackEvent transición de reproducción (play, pause, videoEnded)
type PlaybackEvent struct {
	VideoID string `json:"videoId"`
	UserID  string `json:"userId"`
}

// QuizCompleteEvent resultado final de un quiz enviado
type QuizCompleteEvent struct {
	SessionID string `json:"sessionId"`
	VideoID   string `json:"videoId"`
	Score     int    `json:"score"`
	Passed    bool   `json:"passed"`
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.mutex.Unlock()
			log.Printf("Cliente WebSocket conectado. Total: %d", len(h.clients))

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			h.mutex.Unlock()
			log.Printf("Cliente WebSocket desconectado. Total: %d", len(h.clients))

		case message := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				err := client.WriteMessage(websocket.TextMessage, message)
				if err != nil {
					log.Printf("Error enviando mensaje WebSocket: %v", err)
					delete(h.clients, client)
					client.Close()
				}
			}
			h.mutex.Unlock()
		}
	}
}

// Register suscribe una conexión al hub. El handler que la registra debe
// garantizar la llamada a Unregister al terminar (defer en el upgrade).
func (h *Hub) Register(conn *websocket.Conn) {
	h.register <- conn
}

// Unregister libera la suscripción de una conexión
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.unregister <- conn
}

// BroadcastMessage difunde un evento tipado a todos los clientes
func (h *Hub) BroadcastMessage(msgType string, data interface{}) {
	msg := Message{
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now(),
	}

	msgData, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Error serializando mensaje: %v", err)
		return
	}

	h.broadcast <- msgData
}

// BroadcastTimeUpdate notifica un avance legítimo del trinquete
func (h *Hub) BroadcastTimeUpdate(videoID string, currentTime, duration float64) {
	h.BroadcastMessage("timeUpdate", TimeUpdateEvent{
		VideoID:     videoID,
		CurrentTime: currentTime,
		Duration:    duration,
	})
}

// BroadcastPlayState notifica una transición play/pausa
func (h *Hub) BroadcastPlayState(userID, videoID string, playing bool) {
	msgType := "pause"
	if playing {
		msgType = "play"
	}
	h.BroadcastMessage(msgType, PlaybackEvent{VideoID: videoID, UserID: userID})
}

// BroadcastVideoEnded notifica que el video terminó
func (h *Hub) BroadcastVideoEnded(userID, videoID string) {
	h.BroadcastMessage("videoEnded", PlaybackEvent{VideoID: videoID, UserID: userID})
}

// BroadcastQuizComplete notifica el resultado final de un quiz, una sola vez
// por sesión (el cerrojo de envío lo garantiza)
func (h *Hub) BroadcastQuizComplete(sessionID, videoID string, score int, passed bool) {
	h.BroadcastMessage("quizComplete", QuizCompleteEvent{
		SessionID: sessionID,
		VideoID:   videoID,
		Score:     score,
		Passed:    passed,
	})
}
