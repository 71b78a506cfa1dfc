package api

import (
	"slices"

	"WinamaxFeed/internal/config"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Handlers 路由用到的处理器；Snapshots 为 nil 时不注册归档接口
type Handlers struct {
	Matches   *MatchHandler
	Info      *InfoHandler
	Snapshots *SnapshotHandler
}

// NewRouter 创建 gin 引擎并注册中间件和全部路由
func NewRouter(cfg *config.Config, logger *logrus.Logger, h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), AccessLog(logger), cors.New(corsConfig(cfg.CORS)))

	// 注册ppof 方便调试和监测性能问题
	if cfg.Server.EnablePprof {
		pprof.Register(r)
	}

	r.GET("/", h.Info.Index)
	r.GET("/api/status", h.Info.Status)
	r.GET("/api/info", h.Info.Info)
	r.GET("/api/summary", h.Info.Summary)
	r.GET("/api/data/raw", h.Info.Raw)

	r.GET("/api/matches", h.Matches.ListMatches)
	r.GET("/api/matches/verbose", h.Matches.ListMatchesVerbose)
	r.GET("/api/matches/:match_id", h.Matches.GetMatch)

	if h.Snapshots != nil {
		r.GET("/api/snapshots", h.Snapshots.ListSnapshots)
	}
	return r
}

func corsConfig(cfg config.CORSConfig) cors.Config {
	c := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) == 0 || slices.Contains(cfg.AllowedOrigins, "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = cfg.AllowedOrigins
	}
	c.ExposeHeaders = []string{RequestIDHeader}
	return c
}
