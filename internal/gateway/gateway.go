// Package gateway is the live-delivery side of the pipeline: a websocket
// endpoint that authenticates clients, tracks their connections in the
// registry, and pushes notification frames to per-user handles, task rooms,
// and the all-users broadcast channel.
package gateway

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/taskhub/notifier/internal/auth"
)

// Options tunes connection behaviour; zero values fall back to defaults.
type Options struct {
	WriteWait     time.Duration
	PongWait      time.Duration
	MaxMsgBytes   int64
	AllowedOrigin string
}

// Gateway upgrades HTTP requests to websocket connections.
//
// Admission is fail-closed: the handshake must carry a JWT that resolves to
// a non-empty user identity (via the "token" query parameter or the
// Authorization header), otherwise the request is rejected before upgrade.
type Gateway struct {
	hub      *Hub
	secret   string
	upgrader websocket.Upgrader
	opts     Options
	logger   *zap.Logger
}

func New(hub *Hub, jwtSecret string, opts Options, logger *zap.Logger) *Gateway {
	if opts.WriteWait <= 0 {
		opts.WriteWait = 10 * time.Second
	}
	if opts.PongWait <= 0 {
		opts.PongWait = 60 * time.Second
	}
	if opts.MaxMsgBytes > 0 {
		maxInboundBytes = opts.MaxMsgBytes
	}

	return &Gateway{
		hub:    hub,
		secret: jwtSecret,
		opts:   opts,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || opts.AllowedOrigin == "" || origin == opts.AllowedOrigin
			},
		},
	}
}

// ServeHTTP handles GET /ws: authenticate, upgrade, register, start pumps,
// emit the connected acknowledgment.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := handshakeToken(r)
	if token == "" {
		g.logger.Warn("ws handshake without token", zap.String("remote", r.RemoteAddr))
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	claims, err := auth.Parse(g.secret, token)
	if err != nil {
		g.logger.Warn("ws handshake with invalid token", zap.String("remote", r.RemoteAddr))
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		g.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}

	c := &Client{
		id:        uuid.New().String(),
		userID:    claims.UserID,
		username:  claims.Username,
		hub:       g.hub,
		conn:      conn,
		send:      make(chan []byte, sendBufferSize),
		writeWait: g.opts.WriteWait,
		pongWait:  g.opts.PongWait,
		logger:    g.logger,
	}

	g.hub.register(c)

	c.trySend(EncodeFrame(EventConnected, map[string]string{
		"message":  "successfully connected to notifications",
		"userId":   c.userID,
		"username": c.username,
	}))

	// The request context dies when ServeHTTP returns; the connection
	// outlives it, so the read pump gets its own.
	go c.writePump()
	go c.readPump(context.Background())
}

func handshakeToken(r *http.Request) string {
	if t := r.URL.Query().Get("token"); t != "" {
		return t
	}
	if h := r.Header.Get("Authorization"); h != "" {
		if t, found := strings.CutPrefix(h, "Bearer "); found {
			return t
		}
		return h
	}
	return ""
}
