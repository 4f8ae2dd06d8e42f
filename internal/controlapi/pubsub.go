package controlapi

import "sync"

// Topic names a stream of control-plane events pushed to WebSocket
// subscribers.
type Topic string

const (
	TopicBeatState  Topic = "BEAT_STATE_UPDATED"
	TopicColorFrame Topic = "COLOR_FRAME_UPDATED"
	TopicNodeList   Topic = "NODE_LIST_UPDATED"
	TopicLayerStack Topic = "LAYER_STACK_UPDATED"
)

// subscriber is a single WebSocket connection's event channel.
type subscriber struct {
	id      int
	topic   Topic
	channel chan interface{}
}

// pubsub distributes published events to topic subscribers without
// blocking the publisher; a subscriber that falls behind drops
// messages rather than stalling the render/output loops.
type pubsub struct {
	mu          sync.RWMutex
	subscribers map[Topic][]*subscriber
	nextID      int
}

func newPubSub() *pubsub {
	return &pubsub{subscribers: make(map[Topic][]*subscriber)}
}

// subscribe opens a new channel for topic, buffered to bufferSize.
func (ps *pubsub) subscribe(topic Topic, bufferSize int) *subscriber {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	ps.nextID++
	sub := &subscriber{id: ps.nextID, topic: topic, channel: make(chan interface{}, bufferSize)}
	ps.subscribers[topic] = append(ps.subscribers[topic], sub)
	return sub
}

// unsubscribe closes sub's channel and removes it.
func (ps *pubsub) unsubscribe(sub *subscriber) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	subs := ps.subscribers[sub.topic]
	for i, s := range subs {
		if s.id == sub.id {
			close(s.channel)
			ps.subscribers[sub.topic] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

// publish sends message to every subscriber of topic, non-blocking.
func (ps *pubsub) publish(topic Topic, message interface{}) {
	ps.mu.RLock()
	subs := ps.subscribers[topic]
	ps.mu.RUnlock()

	for _, sub := range subs {
		select {
		case sub.channel <- message:
		default:
		}
	}
}
