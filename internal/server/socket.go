package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/goliatone/go-twigpreview/pkg/preview"
)

const (
	socketWriteWait = 10 * time.Second
	socketPongWait  = 60 * time.Second
	socketPingEvery = (socketPongWait * 9) / 10
	socketQueue     = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     sameHost,
}

func sameHost(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return origin == "http://"+r.Host || origin == "https://"+r.Host
}

func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	s.metrics.ConnectionOpened()
	defer s.metrics.ConnectionClosed()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(socketPongWait)); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(socketPongWait))
	})

	writeCh := make(chan preview.Outbound, socketQueue)
	writerDone := make(chan struct{})
	go s.writeLoop(ctx, conn, writeCh, writerDone)

	// the session posts with its lock held, so the sink only queues
	unsubscribe := s.session.Subscribe(preview.SinkFunc(func(msg preview.Outbound) error {
		push(writeCh, msg)
		return nil
	}))
	defer unsubscribe()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			cancel()
			<-writerDone
			return
		}
		s.dispatch(ctx, payload, writeCh)
	}
}

func (s *Server) dispatch(ctx context.Context, payload []byte, writeCh chan preview.Outbound) {
	msg, err := preview.DecodeInbound(payload)
	if err != nil {
		s.metrics.MessageReceived("")
		push(writeCh, preview.Failed(err.Error()))
		return
	}
	s.metrics.MessageReceived(msg.Type)

	if err := s.session.HandleMessage(ctx, payload); err != nil {
		s.logger.Debug("message failed", "type", msg.Type, "error", err)
		// render failures already reach every subscriber through the session
		if msg.Type != preview.TypeRender {
			push(writeCh, preview.Failed(err.Error()))
		}
	}
}

func (s *Server) writeLoop(ctx context.Context, conn *websocket.Conn, writeCh <-chan preview.Outbound, done chan<- struct{}) {
	defer close(done)
	// unblocks the reader once the writer gives up or the server stops
	defer conn.Close()
	ticker := time.NewTicker(socketPingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case out := <-writeCh:
			if err := conn.SetWriteDeadline(time.Now().Add(socketWriteWait)); err != nil {
				return
			}
			if err := conn.WriteJSON(out); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(socketWriteWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// push queues out, dropping the oldest queued message when the connection
// falls behind.
func push(writeCh chan preview.Outbound, out preview.Outbound) {
	select {
	case writeCh <- out:
		return
	default:
	}
	select {
	case <-writeCh:
	default:
	}
	select {
	case writeCh <- out:
	default:
	}
}
