package http

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"

	"quizbox-service/internal/app"
	"quizbox-service/internal/auth"
	"quizbox-service/internal/domain"
)

// WSHandler serves the live surfaces: quiz sessions and the doubts board.
type WSHandler struct {
	service  *app.QuizService
	chat     *app.ChatBoard
	tokens   *auth.Manager
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, chat *app.ChatBoard, tokens *auth.Manager) *WSHandler {
	return &WSHandler{
		service: service,
		chat:    chat,
		tokens:  tokens,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type selectPayload struct {
	Option int `json:"option"`
}

type completedPayload struct {
	Score          int `json:"score"`
	TotalQuestions int `json:"totalQuestions"`
}

type postPayload struct {
	Text    string               `json:"text"`
	ReplyTo *domain.ReplyContext `json:"replyTo,omitempty"`
}

type deletePayload struct {
	MessageID string `json:"messageId"`
}

// identify resolves the caller from a token query parameter, falling back to
// plain userId/name parameters when no token is supplied.
func (h *WSHandler) identify(r *http.Request) (auth.Claims, bool) {
	if token := r.URL.Query().Get("token"); token != "" && h.tokens != nil {
		claims, err := h.tokens.Verify(token)
		if err != nil {
			return auth.Claims{}, false
		}
		return claims, true
	}
	userID := r.URL.Query().Get("userId")
	name := r.URL.Query().Get("name")
	if userID == "" {
		return auth.Claims{}, false
	}
	return auth.Claims{UserID: userID, Name: name, Role: domain.RoleStudent}, true
}

// ServeQuiz runs one quiz session over a websocket: the server drives the
// per-question flow and timers, the client only sends intents.
func (h *WSHandler) ServeQuiz(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.identify(r)
	if !ok {
		http.Error(w, "missing or invalid identity", http.StatusUnauthorized)
		return
	}
	quizID, err := strconv.ParseInt(r.URL.Query().Get("quizId"), 10, 64)
	if err != nil {
		http.Error(w, "missing or invalid quizId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	engine, err := h.service.StartSession(r.Context(), quizID, claims.UserID, claims.Name)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer engine.Exit()

	updates, cancel := engine.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case view, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "state", Payload: view}:
				case <-closeSignals:
					return
				}
			case <-engine.Completed():
				view := engine.View()
				payload := completedPayload{Score: view.Score, TotalQuestions: view.TotalQuestions}
				select {
				case send <- outboundMessage[any]{Type: "completed", Payload: payload}:
				case <-closeSignals:
				}
				// keep draining state updates until the channel closes
				for {
					select {
					case _, ok := <-updates:
						if !ok {
							return
						}
					case <-closeSignals:
						return
					}
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "select":
			var payload selectPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid select payload"}}
				continue
			}
			if err := engine.Select(payload.Option); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
			}
		case "advance":
			if err := engine.Advance(); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
			}
		case "exit":
			engine.Exit()
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// ServeDoubts streams the shared doubts board over a websocket.
func (h *WSHandler) ServeDoubts(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.identify(r)
	if !ok {
		http.Error(w, "missing or invalid identity", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	events, cancel := h.chat.Subscribe()
	defer cancel()

	history, err := h.chat.History(r.Context(), 100)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	eventsDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(eventsDone)
		for {
			select {
			case event, ok := <-events:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: event.Type, Payload: event}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "history", Payload: history}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "post":
			var payload postPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.Text == "" {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid post payload"}}
				continue
			}
			if _, err := h.chat.Post(r.Context(), claims.UserID, claims.Name, claims.Role, payload.Text, payload.ReplyTo); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
			}
		case "delete":
			var payload deletePayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid delete payload"}}
				continue
			}
			if err := h.chat.Delete(r.Context(), claims.UserID, claims.Role, payload.MessageID); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
			}
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-eventsDone
	close(send)
	<-writerDone
}
