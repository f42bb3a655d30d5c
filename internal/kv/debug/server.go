// Package debug mounts a read-only HTTP surface over a kv.Node's
// published Snapshot: health, membership, and key listing for operators,
// plus a Prometheus /metrics endpoint. It never drives the node's
// protocol — everything here only reads Node.Snapshot().
package debug

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"distributed-protocols/internal/kv"
)

var (
	aliveGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "kv_node_alive_members",
		Help: "Number of members this node currently considers alive.",
	}, []string{"node"})
	failedGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "kv_node_failed_members",
		Help: "Number of members this node currently considers failed.",
	}, []string{"node"})
	keysGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "kv_node_owned_keys",
		Help: "Number of keys held locally by this node.",
	}, []string{"node"})
	gossipSentCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kv_node_gossip_messages_sent_total",
		Help: "Node-to-node protocol messages sent.",
	}, []string{"node"})
	gossipRecvCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kv_node_gossip_messages_received_total",
		Help: "Node-to-node protocol messages received.",
	}, []string{"node"})
	opsServedCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kv_node_client_ops_served_total",
		Help: "Local client commands handled.",
	}, []string{"node"})
)

// lastSeen is the cumulative snapshot counters last folded into the
// Prometheus counters above, so refreshMetrics can Add() the delta instead
// of re-setting a Counter (which the client library forbids).
type lastSeen struct {
	gossipSent, gossipRecv, opsServed int
}

// Handler serves the debug/metrics surface for a single Node.
type Handler struct {
	node *kv.Node
	log  *logrus.Entry

	mu   sync.Mutex
	seen map[string]lastSeen
}

// NewHandler builds a Handler reading node's published snapshots.
func NewHandler(node *kv.Node, log *logrus.Entry) *Handler {
	return &Handler{node: node, log: log, seen: make(map[string]lastSeen)}
}

// Register mounts all routes on r.
func (h *Handler) Register(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.GET("/members", h.Members)
	r.GET("/keys", h.Keys)
	r.GET("/metrics", func(c *gin.Context) {
		h.refreshMetrics(h.node.Snapshot())
		promhttp.Handler().ServeHTTP(c.Writer, c.Request)
	})
}

// Health handles GET /health.
func (h *Handler) Health(c *gin.Context) {
	snap := h.node.Snapshot()
	h.refreshMetrics(snap)
	c.JSON(http.StatusOK, gin.H{
		"node":         snap.Name,
		"addr":         snap.Addr,
		"status":       "ok",
		"alive_count":  snap.AliveCount,
		"failed_count": snap.FailedCount,
	})
}

// Members handles GET /members.
func (h *Handler) Members(c *gin.Context) {
	snap := h.node.Snapshot()
	h.refreshMetrics(snap)
	c.JSON(http.StatusOK, gin.H{
		"alive":  snap.Alive,
		"failed": snap.Failed,
	})
}

// Keys handles GET /keys.
func (h *Handler) Keys(c *gin.Context) {
	snap := h.node.Snapshot()
	h.refreshMetrics(snap)
	c.JSON(http.StatusOK, gin.H{
		"count": snap.KeyCount,
		"keys":  snap.Keys,
	})
}

func (h *Handler) refreshMetrics(snap kv.Snapshot) {
	aliveGauge.WithLabelValues(snap.Name).Set(float64(snap.AliveCount))
	failedGauge.WithLabelValues(snap.Name).Set(float64(snap.FailedCount))
	keysGauge.WithLabelValues(snap.Name).Set(float64(snap.KeyCount))

	h.mu.Lock()
	prev := h.seen[snap.Name]
	h.seen[snap.Name] = lastSeen{
		gossipSent: snap.GossipSent,
		gossipRecv: snap.GossipRecv,
		opsServed:  snap.OpsServed,
	}
	h.mu.Unlock()

	if d := snap.GossipSent - prev.gossipSent; d > 0 {
		gossipSentCounter.WithLabelValues(snap.Name).Add(float64(d))
	}
	if d := snap.GossipRecv - prev.gossipRecv; d > 0 {
		gossipRecvCounter.WithLabelValues(snap.Name).Add(float64(d))
	}
	if d := snap.OpsServed - prev.opsServed; d > 0 {
		opsServedCounter.WithLabelValues(snap.Name).Add(float64(d))
	}
}

// Logger is a Gin middleware that logs every request through log instead
// of the standard library logger, matching how the rest of this module
// logs.
func Logger(log *logrus.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start),
		}).Debug("debug http request")
	}
}

// Recovery wraps Gin's default recovery, logging panics through log.
func Recovery(log *logrus.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Errorf("panic recovered: %v", err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			}
		}()
		c.Next()
	}
}
