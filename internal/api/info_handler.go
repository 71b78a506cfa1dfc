package api

import (
	"net/http"

	"WinamaxFeed/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// InfoHandler 首页、状态、抓取信息、原始数据和分析接口
type InfoHandler struct {
	matchService *service.MatchService
	logger       *logrus.Logger
	withArchive  bool
}

// NewInfoHandler withArchive 表示是否注册了 /api/snapshots
func NewInfoHandler(svc *service.MatchService, logger *logrus.Logger, withArchive bool) *InfoHandler {
	return &InfoHandler{matchService: svc, logger: logger, withArchive: withArchive}
}

// Index 接口列表
// GET /
func (h *InfoHandler) Index(c *gin.Context) {
	endpoints := gin.H{
		"GET /api/matches":                          "Get all matches (simplified)",
		"GET /api/matches?sportId=1":                "Filter by sport (1=Football)",
		"GET /api/matches?date=DD-MM-YYYY":          "Filter by date",
		"GET /api/matches?sportId=1&date=DD-MM-YYYY": "Filter by sport + date",
		"GET /api/matches?morethan=2":               "Home and away odds both strictly above the value",
		"GET /api/matches?anyonehas=1.4":            "Home, draw or away odds within [value, value+0.09]",
		"GET /api/matches/verbose":                  "Get all matches (full details)",
		"GET /api/matches/<id>":                     "Get specific match",
		"GET /api/status":                           "Get API status",
		"GET /api/info":                             "Get capture information",
		"GET /api/summary":                          "Get capture analysis",
		"GET /api/data/raw":                         "Get raw captured data",
	}
	if h.withArchive {
		endpoints["GET /api/snapshots"] = "List archived snapshots"
	}
	c.JSON(http.StatusOK, gin.H{
		"name":      "Winamax Data API",
		"version":   "1.0.0",
		"endpoints": endpoints,
	})
}

// Status 服务状态
// GET /api/status
func (h *InfoHandler) Status(c *gin.Context) {
	result, err := h.matchService.Status(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Status failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// Info 抓取信息
// GET /api/info
func (h *InfoHandler) Info(c *gin.Context) {
	c.JSON(http.StatusOK, h.matchService.Info())
}

// Raw 原始快照
// GET /api/data/raw
func (h *InfoHandler) Raw(c *gin.Context) {
	c.JSON(http.StatusOK, h.matchService.Raw())
}

// Summary 抓取日志分析
// GET /api/summary
func (h *InfoHandler) Summary(c *gin.Context) {
	result, err := h.matchService.Summary(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Summary failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}
