package controlapi

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// wsEnvelope wraps a pubsub message with its topic so the client can
// dispatch on a single connection without separate sockets per topic.
type wsEnvelope struct {
	Topic   Topic       `json:"topic"`
	Payload interface{} `json:"payload"`
}

// handleWebSocket upgrades the connection and streams beat-state,
// node-list and layer-stack updates as they're published, until the
// client disconnects or a write fails.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("controlapi: websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	beatSub := s.ps.subscribe(TopicBeatState, 8)
	nodeSub := s.ps.subscribe(TopicNodeList, 8)
	layerSub := s.ps.subscribe(TopicLayerStack, 8)
	defer s.ps.unsubscribe(beatSub)
	defer s.ps.unsubscribe(nodeSub)
	defer s.ps.unsubscribe(layerSub)

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(10 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			return
		case msg, ok := <-beatSub.channel:
			if !ok {
				return
			}
			if err := s.writeWS(conn, TopicBeatState, msg); err != nil {
				return
			}
		case msg, ok := <-nodeSub.channel:
			if !ok {
				return
			}
			if err := s.writeWS(conn, TopicNodeList, msg); err != nil {
				return
			}
		case msg, ok := <-layerSub.channel:
			if !ok {
				return
			}
			if err := s.writeWS(conn, TopicLayerStack, msg); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		}
	}
}

func (s *Server) writeWS(conn *websocket.Conn, topic Topic, payload interface{}) error {
	b, err := json.Marshal(wsEnvelope{Topic: topic, Payload: payload})
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, b)
}
