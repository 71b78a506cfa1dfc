package api

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"WinamaxFeed/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// MatchHandler 比赛列表与详情接口
type MatchHandler struct {
	matchService *service.MatchService
	logger       *logrus.Logger
}

// NewMatchHandler 创建 MatchHandler
func NewMatchHandler(svc *service.MatchService, logger *logrus.Logger) *MatchHandler {
	return &MatchHandler{
		matchService: svc,
		logger:       logger,
	}
}

// ListMatches 精简比赛列表
// GET /api/matches?sportId=1&date=DD-MM-YYYY&morethan=2&anyonehas=1.4
func (h *MatchHandler) ListMatches(c *gin.Context) {
	filter, ignored := h.parseFilter(c)
	result, err := h.matchService.ListMatches(c.Request.Context(), filter)
	if err != nil {
		h.logger.WithError(err).Error("ListMatches failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	result.IgnoredFilters = ignored
	c.JSON(http.StatusOK, result)
}

// ListMatchesVerbose 完整比赛列表，筛选参数同 ListMatches
// GET /api/matches/verbose
func (h *MatchHandler) ListMatchesVerbose(c *gin.Context) {
	filter, ignored := h.parseFilter(c)
	result, err := h.matchService.ListMatchesVerbose(c.Request.Context(), filter)
	if err != nil {
		h.logger.WithError(err).Error("ListMatchesVerbose failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	result.IgnoredFilters = ignored
	c.JSON(http.StatusOK, result)
}

// GetMatch 单场比赛详情
// GET /api/matches/:match_id
func (h *MatchHandler) GetMatch(c *gin.Context) {
	matchID := c.Param("match_id")
	match, err := h.matchService.GetMatch(c.Request.Context(), matchID)
	if errors.Is(err, service.ErrMatchNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Match not found"})
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("match_id", matchID).Error("GetMatch failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "match": match})
}

// parseFilter 解析查询参数。数值参数无法解析时按未传处理，并在返回里列出被忽略的参数名。
func (h *MatchHandler) parseFilter(c *gin.Context) (service.MatchFilter, []string) {
	var (
		filter  service.MatchFilter
		ignored []string
	)
	filter.Date = c.Query("date")

	if v := c.Query("sportId"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			filter.SportID = &id
		} else {
			ignored = append(ignored, "sportId")
		}
	}
	if v := c.Query("morethan"); v != "" {
		if f, ok := parseFloat(v); ok {
			filter.MoreThan = &f
		} else {
			ignored = append(ignored, "morethan")
		}
	}
	if v := c.Query("anyonehas"); v != "" {
		if f, ok := parseFloat(v); ok {
			filter.AnyoneHas = &f
		} else {
			ignored = append(ignored, "anyonehas")
		}
	}

	if len(ignored) > 0 {
		h.logger.WithFields(logrus.Fields{
			"path":    c.Request.URL.Path,
			"ignored": ignored,
		}).Warn("无法解析的筛选参数已忽略")
	}
	return filter, ignored
}

func parseFloat(v string) (float64, bool) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
