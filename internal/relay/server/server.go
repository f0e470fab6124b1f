package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"secretline/internal/domain"
	"secretline/internal/logging"
	"secretline/internal/relay"
)

// maxBody bounds every JSON request body.
const maxBody = 1 << 20

// Server is the development relay. It implements http.Handler.
type Server struct {
	state    *state
	hub      *hub
	log      *logrus.Entry
	router   chi.Router
	upgrader websocket.Upgrader
}

// New returns a relay with empty state.
func New() *Server {
	log := logging.For("relay")
	s := &Server{
		state: newState(),
		hub:   newHub(log),
		log:   log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
			HandshakeTimeout: 3 * time.Second,
			CheckOrigin:      func(*http.Request) bool { return true },
		},
	}
	s.router = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.accessLog)

	r.Post("/channel", s.createChannel)
	r.Route("/channel/{id}", func(r chi.Router) {
		r.Get("/", s.getChannel)
		r.Post("/members", s.joinChannel)
		r.Delete("/members/{member}", s.leaveChannel)
		r.Post("/public-key", s.uploadPublicKey)
		r.Post("/symmetric-keys", s.uploadSymmetricKeys)
		r.Get("/messages", s.getMessages)
		r.Post("/messages", s.postMessage)
		r.Get("/socket", s.socket)
	})
	return r
}

// accessLog records method, path, status, bytes and duration for each request.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"bytes":      ww.BytesWritten(),
			"duration":   time.Since(start).String(),
			"request_id": middleware.GetReqID(r.Context()),
		}).Debug("request")
	})
}

func channelID(r *http.Request) domain.ChannelID {
	return domain.ChannelID(chi.URLParam(r, "id"))
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, relay.ErrorResponse{Error: msg})
}

// fail maps state errors onto HTTP statuses.
func fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "channel not found")
	case errors.Is(err, domain.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "already exists")
	case errors.Is(err, errForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, errBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) createChannel(w http.ResponseWriter, r *http.Request) {
	var req relay.CreateChannelRequest
	if !decode(w, r, &req) {
		return
	}
	meta, err := s.state.create(req.Kind, req.Members)
	if err != nil {
		fail(w, err)
		return
	}
	s.log.WithFields(logrus.Fields{"channel_id": meta.ID, "kind": meta.Kind}).Info("channel created")
	writeJSON(w, http.StatusCreated, meta)
}

func (s *Server) getChannel(w http.ResponseWriter, r *http.Request) {
	meta, err := s.state.get(channelID(r))
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

func (s *Server) joinChannel(w http.ResponseWriter, r *http.Request) {
	var req relay.JoinRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.state.join(channelID(r), req.Member); err != nil {
		fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) leaveChannel(w http.ResponseWriter, r *http.Request) {
	member := domain.MemberID(chi.URLParam(r, "member"))
	if err := s.state.leave(channelID(r), member); err != nil {
		fail(w, err)
		return
	}
	s.log.WithFields(logrus.Fields{"channel_id": channelID(r), "member_id": member}).Info("member left")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) uploadPublicKey(w http.ResponseWriter, r *http.Request) {
	var req relay.PublicKeyRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.state.publishKey(channelID(r), req.Member, req.PublicKey); err != nil {
		fail(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) uploadSymmetricKeys(w http.ResponseWriter, r *http.Request) {
	var req relay.SymmetricKeysRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.state.publishWrapped(channelID(r), req.Keys); err != nil {
		fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.state.messages(channelID(r))
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, relay.MessagesResponse{Messages: msgs})
}

func (s *Server) postMessage(w http.ResponseWriter, r *http.Request) {
	var req relay.MessageRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Payload == "" {
		writeError(w, http.StatusBadRequest, "empty payload")
		return
	}
	id := channelID(r)
	if err := s.state.appendMessage(id, req.Payload); err != nil {
		fail(w, err)
		return
	}
	s.hub.broadcast(id, nil, []byte(req.Payload))
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) socket(w http.ResponseWriter, r *http.Request) {
	id := channelID(r)
	member := domain.MemberID(r.URL.Query().Get("member"))
	if err := s.state.isMember(id, member); err != nil {
		fail(w, err)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied.
		return
	}

	c := &client{member: member, conn: conn}
	s.hub.add(id, c)
	log := s.log.WithFields(logrus.Fields{"channel_id": id, "member_id": member})
	log.Debug("socket opened")

	defer func() {
		s.hub.remove(id, c)
		_ = conn.Close()
		log.Debug("socket closed")
	}()

	conn.SetReadLimit(maxBody)
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WithError(err).Debug("socket read")
			}
			return
		}
		if err := s.state.appendMessage(id, string(payload)); err != nil {
			log.WithError(err).Warn("append message")
			return
		}
		s.hub.broadcast(id, c, payload)
	}
}
