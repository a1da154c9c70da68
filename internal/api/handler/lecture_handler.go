package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/krrishnaik/Markly/internal/dto"
	"github.com/krrishnaik/Markly/internal/service"
	"github.com/krrishnaik/Markly/pkg/response"
)

// LectureHandler 课程时段 HTTP 处理器
type LectureHandler struct {
	lectureSvc service.LectureService
}

// NewLectureHandler 创建 LectureHandler
func NewLectureHandler(lectureSvc service.LectureService) *LectureHandler {
	return &LectureHandler{lectureSvc: lectureSvc}
}

// Create 手工录入课程时段
// POST /api/v1/lectures
func (h *LectureHandler) Create(c *gin.Context) {
	var req dto.CreateLectureSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	slot, err := h.lectureSvc.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Created(c, slot)
}

// Import 导入 ICS 课表：multipart 上传 file 字段，或 JSON 传入 url
// POST /api/v1/lectures/import
func (h *LectureHandler) Import(c *gin.Context) {
	var req dto.ImportICSRequest
	ctx := c.Request.Context()

	if c.ContentType() == "multipart/form-data" {
		if err := c.ShouldBind(&req); err != nil {
			bindFailed(c, err)
			return
		}
		fh, err := c.FormFile("file")
		if errors.Is(err, http.ErrMissingFile) {
			response.BadRequest(c, response.CodeBadRequest, "缺少课表文件 file")
			return
		}
		if err != nil {
			bindFailed(c, err)
			return
		}
		f, err := fh.Open()
		if err != nil {
			response.BadRequest(c, response.CodeBadRequest, "无法读取课表文件")
			return
		}
		defer f.Close()

		result, err := h.lectureSvc.ImportICS(ctx, f, req.Branch, req.Year)
		if err != nil {
			respondError(c, err)
			return
		}
		response.Created(c, result)
		return
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	if req.URL == "" {
		response.BadRequest(c, response.CodeBadRequest, "url 不能为空")
		return
	}

	result, err := h.lectureSvc.ImportICSFromURL(ctx, req.URL, req.Branch, req.Year)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Created(c, result)
}

// List 日期范围内的课程时段
// GET /api/v1/lectures?from=2026-10-01&to=2026-10-31
func (h *LectureHandler) List(c *gin.Context) {
	var req dto.LectureSlotListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}

	list, err := h.lectureSvc.ListByDateRange(c.Request.Context(), req.From, req.To)
	if err != nil {
		respondError(c, err)
		return
	}
	response.OKList(c, list)
}
