// Package server exposes deck imports over a WebSocket, streaming pipeline
// progress and the resulting notes back to the client.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/xhad/quizdeck/internal/models"
	"github.com/xhad/quizdeck/internal/types"
	"github.com/xhad/quizdeck/pkg/importer"
	"github.com/xhad/quizdeck/pkg/processor"
	"github.com/xhad/quizdeck/pkg/store"
)

// Message types.
const (
	TypeImport     = "import"
	TypeImportHTML = "import_html"
	TypeStatus     = "status"
	TypeProgress   = "progress"
	TypeDeck       = "deck"
	TypeError      = "error"
	TypeDone       = "done"
)

type Message struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Content string          `json:"content"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// ImportRequest is the data of an import message. URL names the source of
// pasted page source in import_html messages.
type ImportRequest struct {
	types.ImportOptions
	URL string `json:"url,omitempty"`
}

// Importer is the part of the import pipeline the server drives.
type Importer interface {
	Import(ctx context.Context, sourceURL string, opts types.ImportOptions) ([]*models.Deck, error)
	ImportHTML(ctx context.Context, html, sourceURL string, opts types.ImportOptions) (*models.Deck, error)
}

type Config struct {
	// AllowedOrigins lists accepted Origin headers; empty accepts any.
	AllowedOrigins []string
	Processor      processor.ProcessorConfig
	// DownloadAudio is the default when a request does not set it.
	DownloadAudio bool
}

type WSServer struct {
	config    Config
	importer  Importer
	processor processor.Processor
	upgrader  websocket.Upgrader
	log       *slog.Logger
}

func NewWSServer(config Config, im Importer, logger *slog.Logger) *WSServer {
	if logger == nil {
		logger = slog.Default()
	}
	s := &WSServer{
		config:    config,
		importer:  im,
		processor: processor.NewWithConfig(config.Processor),
		log:       logger.With("component", "server"),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

func (s *WSServer) checkOrigin(r *http.Request) bool {
	if len(s.config.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, allowed := range s.config.AllowedOrigins {
		if strings.EqualFold(origin, allowed) {
			return true
		}
	}
	return false
}

// Handler serves /ws and /health.
func (s *WSServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return mux
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *WSServer) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// conn serializes writes; gorilla connections allow one writer at a time.
type conn struct {
	ws  *websocket.Conn
	mu  sync.Mutex
	log *slog.Logger
}

func (c *conn) send(msg Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ws.WriteJSON(msg); err != nil {
		c.log.Warn("error sending message", slog.String("error", err.Error()))
	}
}

func (s *WSServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer ws.Close()

	c := &conn{ws: ws, log: s.log}

	// Imports still running when the client goes away are cancelled.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("error reading message", slog.String("error", err.Error()))
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.send(Message{Type: TypeError, Content: fmt.Sprintf("invalid message: %v", err)})
			continue
		}
		if msg.ID == "" {
			msg.ID = uuid.NewString()
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleMessage(ctx, c, msg)
		}()
	}
	cancel()
}

func (s *WSServer) handleMessage(ctx context.Context, c *conn, msg Message) {
	req := ImportRequest{ImportOptions: types.ImportOptions{DownloadAudio: s.config.DownloadAudio}}
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			s.sendError(c, msg.ID, fmt.Errorf("invalid import options: %w", err))
			return
		}
	}

	ctx = importer.WithProgress(ctx, func(p importer.Progress) {
		s.sendProgress(c, msg.ID, p)
	})
	log := s.log.With("request", msg.ID)

	var decks []*models.Deck
	var err error
	switch msg.Type {
	case TypeImport:
		c.send(Message{ID: msg.ID, Type: TypeStatus, Content: fmt.Sprintf("Importing %s", msg.Content)})
		decks, err = s.importer.Import(ctx, strings.TrimSpace(msg.Content), req.ImportOptions)
	case TypeImportHTML:
		c.send(Message{ID: msg.ID, Type: TypeStatus, Content: "Importing page source"})
		var deck *models.Deck
		deck, err = s.importer.ImportHTML(ctx, msg.Content, req.URL, req.ImportOptions)
		if deck != nil {
			decks = []*models.Deck{deck}
		}
	default:
		s.sendError(c, msg.ID, fmt.Errorf("unknown message type %q", msg.Type))
		return
	}

	// Decks finished before a folder import failed are still delivered.
	for _, deck := range decks {
		s.sendDeck(c, msg.ID, deck)
	}
	if err != nil {
		log.Warn("import failed", slog.String("error", err.Error()))
		s.sendError(c, msg.ID, err)
		return
	}
	log.Info("import done", slog.Int("decks", len(decks)))
	c.send(Message{ID: msg.ID, Type: TypeDone, Content: fmt.Sprintf("Imported %d deck(s)", len(decks))})
}

func (s *WSServer) sendProgress(c *conn, id string, p importer.Progress) {
	content := p.State.String()
	if p.State == importer.StateDownloading {
		content = fmt.Sprintf("Downloaded %d/%d media files", p.Done, p.Total)
	}
	s.sendData(c, Message{ID: id, Type: TypeProgress, Content: content}, map[string]any{
		"deck":  p.Deck,
		"state": p.State.String(),
		"done":  p.Done,
		"total": p.Total,
	})
}

func (s *WSServer) sendDeck(c *conn, id string, deck *models.Deck) {
	s.sendData(c, Message{ID: id, Type: TypeDeck, Content: deck.FullName()}, map[string]any{
		"deck":  store.DeckJSON(deck),
		"notes": s.processor.Process(deck),
	})
}

// sendError reports err with its classification so clients can tell a
// captcha block from a private or missing set.
func (s *WSServer) sendError(c *conn, id string, err error) {
	s.sendData(c, Message{ID: id, Type: TypeError, Content: err.Error()}, map[string]any{
		"kind":    models.Classify(err).String(),
		"captcha": models.IsCaptcha(err),
	})
}

func (s *WSServer) sendData(c *conn, msg Message, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		s.log.Error("error encoding message data", slog.String("error", err.Error()))
	} else {
		msg.Data = raw
	}
	c.send(msg)
}
