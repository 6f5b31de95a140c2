package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Adr1an04/boomai/internal/orchestrator"
	"github.com/Adr1an04/boomai/pkg/models"
)

const (
	streamWriteWait  = 10 * time.Second
	streamBufferSize = 64
)

var streamUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// Inbound frame types.
const (
	frameChat   = "chat"
	frameCancel = "cancel"
)

// Outbound frame types.
const (
	frameEvent    = "event"
	frameResponse = "response"
	frameError    = "error"
)

// StreamRequest is a client frame. An empty type means chat.
type StreamRequest struct {
	Type     string           `json:"type"`
	RunID    string           `json:"run_id,omitempty"`
	Messages []models.Message `json:"messages,omitempty"`
}

// StreamFrame is a server frame.
type StreamFrame struct {
	Type     string               `json:"type"`
	Event    *orchestrator.Event  `json:"event,omitempty"`
	Response *models.ChatResponse `json:"response,omitempty"`
	Error    string               `json:"error,omitempty"`
}

// wsWriter serializes writes; gorilla connections allow one writer.
type wsWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsWriter) write(f StreamFrame) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.conn.SetWriteDeadline(time.Now().Add(streamWriteWait)); err != nil {
		return err
	}
	return w.conn.WriteJSON(f)
}

// handleStream runs one chat at a time per connection. A cancel frame
// cancels the chat in progress; closing the socket cancels it too.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := streamUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[server] websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	out := &wsWriter{conn: conn}
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		current context.CancelFunc
	)

	for {
		var in StreamRequest
		if err := conn.ReadJSON(&in); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[server] stream read: %v", err)
			}
			break
		}

		switch strings.ToLower(strings.TrimSpace(in.Type)) {
		case frameCancel:
			mu.Lock()
			if current != nil {
				current()
			}
			mu.Unlock()

		case "", frameChat:
			mu.Lock()
			if current != nil {
				mu.Unlock()
				if err := out.write(StreamFrame{Type: frameError, Error: "a run is already in progress"}); err != nil {
					log.Printf("[server] stream write: %v", err)
				}
				continue
			}
			if in.RunID != "" {
				if err := orchestrator.ValidateRunID(in.RunID); err != nil {
					mu.Unlock()
					if werr := out.write(StreamFrame{Type: frameError, Error: err.Error()}); werr != nil {
						log.Printf("[server] stream write: %v", werr)
					}
					continue
				}
			}
			runCtx, runCancel := context.WithCancel(ctx)
			current = runCancel
			mu.Unlock()

			var opts []orchestrator.RunOption
			if in.RunID != "" {
				opts = append(opts, orchestrator.WithRunID(in.RunID))
			}

			wg.Add(1)
			go func(req models.ChatRequest) {
				defer wg.Done()
				s.streamRun(runCtx, out, req, opts...)
				mu.Lock()
				current = nil
				mu.Unlock()
				runCancel()
			}(models.ChatRequest{Messages: in.Messages})

		default:
			if err := out.write(StreamFrame{Type: frameError, Error: "unknown frame type " + in.Type}); err != nil {
				log.Printf("[server] stream write: %v", err)
			}
		}
	}

	cancel()
	wg.Wait()
}

// streamRun forwards run events as frames, then the final response.
func (s *Server) streamRun(ctx context.Context, out *wsWriter, req models.ChatRequest, opts ...orchestrator.RunOption) {
	emitter := orchestrator.NewEventEmitter(streamBufferSize)

	forwarded := make(chan struct{})
	go func() {
		defer close(forwarded)
		for ev := range emitter.Events() {
			ev := ev
			if err := out.write(StreamFrame{Type: frameEvent, Event: &ev}); err != nil {
				log.Printf("[server] stream write: %v", err)
			}
		}
	}()

	opts = append(opts, orchestrator.WithObserver(emitter.Emit))
	resp, err := s.orch.Run(ctx, req, opts...)
	emitter.Close()
	<-forwarded

	if errors.Is(err, orchestrator.ErrRunActive) {
		if werr := out.write(StreamFrame{Type: frameError, Error: resp.Message.Content}); werr != nil {
			log.Printf("[server] stream write: %v", werr)
		}
		return
	}
	if err != nil {
		log.Printf("[server] stream run failed: %v", err)
	}
	if werr := out.write(StreamFrame{Type: frameResponse, Response: &resp}); werr != nil {
		log.Printf("[server] stream write: %v", werr)
	}
}
