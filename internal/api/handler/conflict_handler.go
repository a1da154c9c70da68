package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/krrishnaik/Markly/internal/dto"
	"github.com/krrishnaik/Markly/internal/service"
	"github.com/krrishnaik/Markly/pkg/response"
)

// ConflictHandler 课程冲突 HTTP 处理器（教师）
type ConflictHandler struct {
	conflictSvc service.ConflictService
}

// NewConflictHandler 创建 ConflictHandler
func NewConflictHandler(conflictSvc service.ConflictService) *ConflictHandler {
	return &ConflictHandler{conflictSvc: conflictSvc}
}

// ListPending 待处理冲突；group=year 时按学生年级分组
// GET /api/v1/conflicts?from=2026-10-01&to=2026-10-31&group=year
func (h *ConflictHandler) ListPending(c *gin.Context) {
	var req dto.ConflictListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}

	ctx := c.Request.Context()
	if req.Group == "year" {
		groups, err := h.conflictSvc.ListPendingByYear(ctx, req.From, req.To)
		if err != nil {
			respondError(c, err)
			return
		}
		response.OKList(c, groups)
		return
	}

	list, err := h.conflictSvc.ListPending(ctx, req.From, req.To)
	if err != nil {
		respondError(c, err)
		return
	}
	response.OKList(c, list)
}

// Resolve 处理冲突中某个学生的考勤（EXCUSE / REJECT）
// POST /api/v1/conflicts/:id/resolve
func (h *ConflictHandler) Resolve(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.ResolveConflictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	result, err := h.conflictSvc.Resolve(c.Request.Context(), c.Param("id"), req.StudentID, req.Decision, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, result)
}

// ListResolved 冲突的处理记录
// GET /api/v1/conflicts/:id/resolutions
func (h *ConflictHandler) ListResolved(c *gin.Context) {
	list, err := h.conflictSvc.ListResolved(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	response.OKList(c, list)
}
