// Package controller bootstraps one overlay node: load topology, open
// the local partition store, wire the cache/registry/query engine/gather
// handler, start the gRPC and admin REST servers, run maintenance
// schedulers, and block until shutdown. Grounded in the teacher's
// internal/node/controller.go Run/startPeerSchedulers shape, narrowed
// from the teacher's discovery/spatial/election bootstrap to this spec's
// static-topology model.
package controller

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/basecamp-overlay/overlay/internal/api/rest"
	"github.com/basecamp-overlay/overlay/internal/cache"
	"github.com/basecamp-overlay/overlay/internal/partition"
	"github.com/basecamp-overlay/overlay/internal/query"
	"github.com/basecamp-overlay/overlay/internal/registry"
	"github.com/basecamp-overlay/overlay/internal/rpcserver"
	"github.com/basecamp-overlay/overlay/internal/topology"

	_ "github.com/basecamp-overlay/overlay/internal/rpccodec" // registers the JSON "proto" codec
)

// Scheduler intervals for the supplemental maintenance goroutines (spec
// SUPPLEMENTED FEATURES); grounded in the teacher's Schedule config
// (ledgerCleanup/dbCleanup/healthCheck tickers).
const (
	cacheSweepInterval   = 30 * time.Second
	storeCompactInterval = 5 * time.Minute
	peerPingInterval     = 15 * time.Second
)

// Controller owns one node's full runtime: config, topology, store,
// cache, registry, and the gRPC/REST servers built on top of them.
type Controller struct {
	nodeID  string
	cfgFile string
	address string
	logger  *zap.Logger
}

// New builds a Controller for node nodeID, listening on address, loading
// topology from cfgFile.
func New(nodeID, address, cfgFile string, logger *zap.Logger) *Controller {
	return &Controller{nodeID: nodeID, address: address, cfgFile: cfgFile, logger: logger}
}

// Run wires every component and blocks until SIGINT/SIGTERM or ctx is
// cancelled. Configuration errors are fatal, per spec §7.
func (c *Controller) Run(ctx context.Context) error {
	topo, err := topology.Load(c.cfgFile)
	if err != nil {
		return fmt.Errorf("controller: topology load: %w", err)
	}

	self, ok := topo.Node(c.nodeID)
	if !ok {
		return fmt.Errorf("controller: node id %q not present in topology", c.nodeID)
	}

	store, err := partition.Open(c.nodeID, self.Lo, self.Hi, c.logger)
	if err != nil {
		return fmt.Errorf("controller: partition open: %w", err)
	}
	defer store.Close()
	if err := store.Seed(); err != nil {
		return fmt.Errorf("controller: partition seed: %w", err)
	}

	resultCache := cache.New(topo.CacheCapacity(), time.Duration(topo.CacheTTLSeconds())*time.Second)

	reg, err := registry.New(topo, c.nodeID, c.logger)
	if err != nil {
		return fmt.Errorf("controller: registry build: %w", err)
	}
	defer reg.Close()

	gather := query.NewGatherHandler(c.nodeID, topo, store, reg, c.logger)

	var engine *query.Engine
	if topo.IsPortal(c.nodeID) {
		engine = query.New(c.nodeID, topo, store, resultCache, reg, c.logger)
	}

	server := rpcserver.New(c.nodeID, topo.IsPortal(c.nodeID), engine, gather, c.logger)
	grpcSrv, err := server.Serve(c.address)
	if err != nil {
		return fmt.Errorf("controller: grpc serve: %w", err)
	}
	defer grpcSrv.GracefulStop()

	restSrv := rest.New(c.nodeID, topo, resultCache, c.logger)
	restAddr, err := adminAddr(c.address)
	if err != nil {
		return fmt.Errorf("controller: admin address: %w", err)
	}

	schedCtx, cancelSched := context.WithCancel(ctx)
	defer cancelSched()
	c.startSchedulers(schedCtx, store, resultCache, reg)

	c.logger.Info("overlay node running",
		zap.String("node_id", c.nodeID),
		zap.Bool("is_portal", topo.IsPortal(c.nodeID)),
		zap.String("grpc_addr", c.address),
		zap.String("admin_addr", restAddr),
	)

	// The admin REST server and the shutdown-signal wait run concurrently;
	// either the REST listener dying or a shutdown signal arriving ends
	// the group, and the group's context cancellation (not used directly
	// by either goroutine's own work, since both are already terminal)
	// lets a future third member observe the same shutdown.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := restSrv.Start(restAddr); err != nil {
			return fmt.Errorf("admin REST server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sigCh:
			c.logger.Info("shutdown signal received")
		case <-gctx.Done():
			c.logger.Info("context cancelled")
		}
		return nil
	})
	return g.Wait()
}

// startSchedulers runs the supplemental ticker-driven maintenance loops:
// cache TTL sweep, store compaction, and peer health probing. None of
// these are part of spec.md's core contracts; they degrade to no-ops on
// failure and never affect query correctness.
func (c *Controller) startSchedulers(ctx context.Context, store *partition.Store, resultCache *cache.Cache, reg *registry.Registry) {
	go func() {
		ticker := time.NewTicker(cacheSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				resultCache.Len() // opportunistic eviction as a side effect of Len
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(storeCompactInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := store.CompactExpired(); err != nil {
					c.logger.Warn("scheduled store compaction failed", zap.Error(err))
				}
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(peerPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for _, peer := range reg.All() {
					pingCtx, cancel := context.WithTimeout(ctx, time.Second)
					err := peer.Ping(pingCtx)
					cancel()
					if err != nil {
						c.logger.Warn("peer health probe failed", zap.String("peer", peer.ID), zap.Error(err))
					}
				}
			}
		}
	}()
}

// adminAddr derives the admin REST listen address from the gRPC listen
// address by incrementing the port, so a single --address flag suffices
// (spec §6's CLI surface names only --address/--node-id/--config).
func adminAddr(grpcAddr string) (string, error) {
	host, portStr, err := net.SplitHostPort(grpcAddr)
	if err != nil {
		return "", fmt.Errorf("split host:port %q: %w", grpcAddr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", fmt.Errorf("parse port %q: %w", portStr, err)
	}
	return net.JoinHostPort(host, strconv.Itoa(port+1)), nil
}
