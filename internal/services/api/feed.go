package api

import (
	"encoding/json"
	"io"
	"log"
	"sync"

	"golang.org/x/net/websocket"
)

// runCreatedFrameType names the broadcast emitted after a run persists.
const runCreatedFrameType = "run.created"

// feedFrame is one websocket message on the run feed.
type feedFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// feedPeer serializes frame writes to one websocket client.
type feedPeer struct {
	mu      sync.Mutex
	encoder *json.Encoder
}

func newFeedPeer(encoder *json.Encoder) *feedPeer {
	return &feedPeer{encoder: encoder}
}

func (p *feedPeer) writeFrame(frame feedFrame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.encoder.Encode(frame)
}

// runFeed broadcasts run-created events to subscribed websocket peers.
type runFeed struct {
	mu          sync.Mutex
	subscribers map[*feedPeer]struct{}
}

func newRunFeed() *runFeed {
	return &runFeed{subscribers: make(map[*feedPeer]struct{})}
}

func (f *runFeed) subscribe(peer *feedPeer) {
	f.mu.Lock()
	f.subscribers[peer] = struct{}{}
	f.mu.Unlock()
}

func (f *runFeed) unsubscribe(peer *feedPeer) {
	f.mu.Lock()
	delete(f.subscribers, peer)
	f.mu.Unlock()
}

// broadcastRunCreated fans a persisted run out to every subscriber. A
// failed peer write only loses that peer's frame.
func (f *runFeed) broadcastRunCreated(record runRecordJSON) {
	if f == nil {
		return
	}
	payload, err := json.Marshal(record)
	if err != nil {
		log.Printf("marshal run feed payload: %v", err)
		return
	}
	frame := feedFrame{Type: runCreatedFrameType, Payload: payload}

	f.mu.Lock()
	peers := make([]*feedPeer, 0, len(f.subscribers))
	for peer := range f.subscribers {
		peers = append(peers, peer)
	}
	f.mu.Unlock()

	for _, peer := range peers {
		if err := peer.writeFrame(frame); err != nil {
			log.Printf("write run feed frame: %v", err)
		}
	}
}

// handleConn subscribes one websocket connection to the feed and holds
// it open until the client disconnects. The feed is broadcast-only, so
// inbound payloads are drained and ignored.
func (f *runFeed) handleConn(conn *websocket.Conn) {
	defer func() {
		_ = conn.Close()
	}()
	peer := newFeedPeer(json.NewEncoder(conn))
	f.subscribe(peer)
	defer f.unsubscribe(peer)

	_, _ = io.Copy(io.Discard, conn)
}
