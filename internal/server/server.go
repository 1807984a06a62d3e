package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"focustrack/internal/model"
	"focustrack/internal/tracker"
)

const watchWriteTimeout = 5 * time.Second

// Server is the sync HTTP server. It exposes per-user day records over
// a small JSON API and pushes record changes to websocket watchers.
type Server struct {
	cfg    *Config
	store  *Store
	hub    *Hub
	logger *slog.Logger
	tokens map[string]string // bearer token -> user id

	listener net.Listener
	httpSrv  *http.Server
}

func New(cfg *Config, store *Store, hub *Hub, logger *slog.Logger) *Server {
	tokens := make(map[string]string, len(cfg.Users))
	for _, u := range cfg.Users {
		tokens[u.Token] = u.ID
	}
	return &Server{
		cfg:    cfg,
		store:  store,
		hub:    hub,
		logger: logger,
		tokens: tokens,
	}
}

// Start begins listening and serving in the background.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.ListenAddr, err)
	}
	s.listener = listener
	s.httpSrv = &http.Server{Handler: s.router()}

	go func() {
		if err := s.httpSrv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server stopped", "error", err)
		}
	}()

	s.logger.Info("listening", "addr", listener.Addr().String())
	return nil
}

// Addr returns the bound listen address. Only valid after Start.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Shutdown stops accepting connections and waits for in-flight
// requests up to the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowOrigins = []string{"*"}
	corsCfg.AllowMethods = []string{"GET", "PUT", "DELETE", "OPTIONS"}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	r.Use(cors.New(corsCfg))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.Use(s.authenticate)
	{
		api.GET("/me", s.handleMe)

		records := api.Group("/users/:userID/records/:dateKey")
		records.Use(s.boundUser)
		{
			records.GET("", s.handleGet)
			records.PUT("", s.handlePut)
			records.DELETE("", s.handleDelete)
			records.GET("/watch", s.handleWatch)
		}
	}
	return r
}

// authenticate resolves the bearer token to a configured user and
// stores the user id on the request context.
func (s *Server) authenticate(c *gin.Context) {
	token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	uid, ok := s.tokens[token]
	if token == "" || !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing token"})
		return
	}
	c.Set("userID", uid)
	c.Next()
}

// boundUser rejects requests whose token belongs to a different user
// than the one in the path, and malformed date keys.
func (s *Server) boundUser(c *gin.Context) {
	if c.Param("userID") != c.GetString("userID") {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "token is not valid for this user"})
		return
	}
	if _, err := time.Parse("2006-01-02", c.Param("dateKey")); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid date key"})
		return
	}
	c.Next()
}

func (s *Server) handleMe(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user_id": c.GetString("userID")})
}

func (s *Server) handleGet(c *gin.Context) {
	rec, err := s.store.GetRecord(c.Request.Context(), c.GetString("userID"), c.Param("dateKey"))
	if err != nil {
		s.logger.Error("record read failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read record"})
		return
	}
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
		return
	}
	c.JSON(http.StatusOK, model.FromRecord(rec))
}

func (s *Server) handlePut(c *gin.Context) {
	uid := c.GetString("userID")
	dateKey := c.Param("dateKey")

	var body model.PutPayload
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	state := tracker.State(body.State)
	if !state.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid state %q", body.State)})
		return
	}
	if body.FocusedMs < 0 || body.DistractedMs < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "negative totals are not allowed"})
		return
	}

	rec, err := s.store.MergeUpsert(c.Request.Context(), uid, dateKey, body.FocusedMs, body.DistractedMs, state)
	if err != nil {
		s.logger.Error("record write failed", "user_id", uid, "date", dateKey, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to write record"})
		return
	}

	s.hub.Publish(uid, dateKey, rec)
	c.JSON(http.StatusOK, model.FromRecord(rec))
}

func (s *Server) handleDelete(c *gin.Context) {
	uid := c.GetString("userID")
	dateKey := c.Param("dateKey")

	if err := s.store.DeleteRecord(c.Request.Context(), uid, dateKey); err != nil {
		s.logger.Error("record delete failed", "user_id", uid, "date", dateKey, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete record"})
		return
	}

	s.hub.Publish(uid, dateKey, nil)
	c.Status(http.StatusNoContent)
}

// handleWatch upgrades to a websocket, sends the current record as the
// first frame, then forwards hub updates until the client goes away.
func (s *Server) handleWatch(c *gin.Context) {
	uid := c.GetString("userID")
	dateKey := c.Param("dateKey")

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "watch ended")

	// Subscribe before the initial read so a write landing between the
	// two shows up as an update instead of being missed.
	updates, cancel := s.hub.Subscribe(uid, dateKey)
	defer cancel()

	ctx := conn.CloseRead(c.Request.Context())

	rec, err := s.store.GetRecord(ctx, uid, dateKey)
	if err != nil {
		s.logger.Error("watch initial read failed", "user_id", uid, "date", dateKey, "error", err)
		return
	}
	if err := writeFrame(ctx, conn, rec); err != nil {
		return
	}
	s.logger.Debug("watch opened", "user_id", uid, "date", dateKey)

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case rec := <-updates:
			if err := writeFrame(ctx, conn, rec); err != nil {
				s.logger.Debug("watch write failed", "user_id", uid, "error", err)
				return
			}
		}
	}
}

func writeFrame(ctx context.Context, conn *websocket.Conn, rec *tracker.DayRecord) error {
	var frame model.WatchFrame
	if rec != nil {
		frame.Record = model.FromRecord(rec)
	}
	wctx, cancel := context.WithTimeout(ctx, watchWriteTimeout)
	defer cancel()
	return wsjson.Write(wctx, conn, frame)
}
