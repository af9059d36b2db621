package server

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/flowrun/component"
	"github.com/kbukum/flowrun/version"
)

// HealthChecker reports the health of every registered component.
type HealthChecker func(ctx context.Context) []component.Health

// systemPaths are the probe routes installed by RegisterDefaultEndpoints.
var systemPaths = map[string]bool{
	"/health":  true,
	"/livez":   true,
	"/readyz":  true,
	"/info":    true,
	"/metrics": true,
}

// probes serves the operational endpoints of one service.
type probes struct {
	service string
	checker HealthChecker
	started time.Time
}

func (p *probes) register(r gin.IRoutes) {
	r.GET("/health", p.health)
	r.GET("/livez", p.live)
	r.GET("/readyz", p.ready)
	r.GET("/info", p.info)
	r.GET("/metrics", p.runtime)
}

func (p *probes) components(ctx context.Context) []component.Health {
	if p.checker == nil {
		return []component.Health{}
	}
	return p.checker(ctx)
}

// overall folds component states into one; any unhealthy component wins.
func overall(hs []component.Health) component.HealthStatus {
	status := component.StatusHealthy
	for _, h := range hs {
		switch h.Status {
		case component.StatusUnhealthy:
			return component.StatusUnhealthy
		case component.StatusDegraded:
			status = component.StatusDegraded
		}
	}
	return status
}

func now() string { return time.Now().UTC().Format(time.RFC3339) }

func (p *probes) health(c *gin.Context) {
	hs := p.components(c.Request.Context())
	status := overall(hs)
	code := http.StatusOK
	if status == component.StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":     status,
		"service":    p.service,
		"timestamp":  now(),
		"components": hs,
	})
}

func (p *probes) live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive", "service": p.service, "timestamp": now()})
}

func (p *probes) ready(c *gin.Context) {
	if overall(p.components(c.Request.Context())) == component.StatusUnhealthy {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "service": p.service, "timestamp": now()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "service": p.service, "timestamp": now()})
}

func (p *probes) info(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": p.service,
		"build":   version.GetVersionInfo(),
		"uptime":  time.Since(p.started).Round(time.Second).String(),
	})
}

func (p *probes) runtime(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	const mb = 1 << 20
	c.JSON(http.StatusOK, gin.H{
		"goroutines":  runtime.NumGoroutine(),
		"heap_mb":     m.HeapAlloc / mb,
		"sys_mb":      m.Sys / mb,
		"gc_cycles":   m.NumGC,
		"gc_pause_ns": m.PauseTotalNs,
	})
}
