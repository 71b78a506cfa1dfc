package api

import (
	"net/http"
	"strconv"

	"WinamaxFeed/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SnapshotHandler 快照归档查询（仅在启用数据库时注册）
type SnapshotHandler struct {
	repo   repository.SnapshotRepository
	logger *logrus.Logger
}

// NewSnapshotHandler 创建 SnapshotHandler
func NewSnapshotHandler(repo repository.SnapshotRepository, logger *logrus.Logger) *SnapshotHandler {
	return &SnapshotHandler{repo: repo, logger: logger}
}

// ListSnapshots 归档列表（不含消息体）
// GET /api/snapshots?page=1&page_size=20
func (h *SnapshotHandler) ListSnapshots(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	items, total, err := h.repo.List(c.Request.Context(), page, pageSize)
	if err != nil {
		h.logger.WithError(err).Error("ListSnapshots failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"page":      page,
		"page_size": pageSize,
		"total":     total,
		"items":     items,
	})
}
