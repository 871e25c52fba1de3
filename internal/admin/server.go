// Package admin serves a node's jurisdiction state over HTTP for operators.
package admin

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/danmuck/voxctl/internal/jurisdiction"
	"github.com/danmuck/voxctl/internal/observability"
	"github.com/danmuck/voxctl/internal/octal"
	"github.com/danmuck/voxctl/internal/registry"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Source yields the jurisdiction the node currently claims.
type Source interface {
	Sender() uuid.UUID
	Jurisdiction() *jurisdiction.Map
}

type Server struct {
	name   string
	src    Source
	reg    *registry.Registry
	router *gin.Engine
	log    zerolog.Logger
}

type jurisdictionView struct {
	Node     string   `json:"node"`
	Sender   string   `json:"sender"`
	NodeType string   `json:"node_type"`
	Root     string   `json:"root"`
	RootPath string   `json:"root_path"`
	EndNodes []string `json:"end_nodes"`
}

// New wires the admin routes. reg may be nil when the node tracks no peers.
func New(name string, src Source, reg *registry.Registry, logger zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.AdminRequests(name, logger))

	s := &Server{name: name, src: src, reg: reg, router: r, log: logger}
	s.routes()
	return s
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) routes() {
	observability.RegisterMetrics()
	s.router.GET("/health", s.health)
	s.router.GET("/jurisdiction", s.jurisdiction)
	s.router.GET("/classify", s.classify)
	s.router.GET("/owners", s.owners)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "node": s.name})
}

func (s *Server) jurisdiction(c *gin.Context) {
	m := s.src.Jurisdiction()
	root := m.Root()
	ends := m.EndNodes()
	view := jurisdictionView{
		Node:     s.name,
		Sender:   s.src.Sender().String(),
		NodeType: m.NodeType().String(),
		Root:     root.Hex(),
		RootPath: root.String(),
		EndNodes: make([]string, len(ends)),
	}
	for i, e := range ends {
		view.EndNodes[i] = e.Hex()
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) classify(c *gin.Context) {
	code, child, ok := s.query(c)
	if !ok {
		return
	}
	area, err := s.src.Jurisdiction().Classify(code, child)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.Set(observability.AreaKey, area.String())
	c.JSON(http.StatusOK, gin.H{"code": code.Hex(), "path": code.String(), "child": child, "area": area.String()})
}

func (s *Server) owners(c *gin.Context) {
	if s.reg == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no registry on this node"})
		return
	}
	code, child, ok := s.query(c)
	if !ok {
		return
	}
	ids := s.reg.Owners(code, child)
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	c.JSON(http.StatusOK, gin.H{"code": code.Hex(), "owners": out})
}

func (s *Server) query(c *gin.Context) (octal.Code, int, bool) {
	code, err := octal.ParseHex(c.Query("code"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, 0, false
	}
	child := octal.NoChild
	if raw := c.Query("child"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > 7 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "child must be 0-7"})
			return nil, 0, false
		}
		child = n
	}
	return code, child, true
}

// ListenAndServe blocks until ctx ends, then shuts the listener down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Str("node", s.name).Msg("admin listening")
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
