// Package rest provides a small Gin-based read-only admin surface,
// grounded in the teacher's internal/api/rest/router.go — trimmed to the
// two debug endpoints this spec's Non-goals leave room for (no storage
// mutation endpoints, no auth, no swagger: client menus and auth are
// explicitly out of scope).
package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/basecamp-overlay/overlay/internal/cache"
	"github.com/basecamp-overlay/overlay/internal/topology"
)

// Server is the admin REST server.
type Server struct {
	engine *gin.Engine
	selfID string
	topo   *topology.Topology
	cache  *cache.Cache
	logger *zap.Logger
}

// New creates a REST Server bound to the node's topology and cache.
func New(selfID string, topo *topology.Topology, c *cache.Cache, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{engine: engine, selfID: selfID, topo: topo, cache: c, logger: logger}
	s.registerRoutes()
	return s
}

// Start starts the REST server on addr.
func (s *Server) Start(addr string) error {
	s.logger.Info("admin REST API listening", zap.String("addr", addr))
	return s.engine.Run(addr)
}

func (s *Server) registerRoutes() {
	overlay := s.engine.Group("/overlay")
	overlay.GET("/health", s.health)
	overlay.GET("/topology", s.topologyInfo)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"node_id":   s.selfID,
		"is_portal": s.topo.IsPortal(s.selfID),
		"cache_len": s.cache.Len(),
	})
}

func (s *Server) topologyInfo(c *gin.Context) {
	nodes := s.topo.Nodes()
	out := make([]gin.H, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, gin.H{
			"id":          n.ID,
			"host_group":  n.HostGroup,
			"port":        n.Port,
			"connects_to": n.ConnectsTo,
			"range":       []int64{n.Lo, n.Hi},
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"portal": s.topo.Portal(),
		"nodes":  out,
	})
}
