package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/krrishnaik/Markly/internal/service"
	"github.com/krrishnaik/Markly/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc  service.ExportService
	meetingSvc service.MeetingService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService, meetingSvc service.MeetingService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc, meetingSvc: meetingSvc}
}

// ExportMeetingAttendance 导出会议考勤表
// GET /api/v1/meetings/:id/export
func (h *ExportHandler) ExportMeetingAttendance(c *gin.Context) {
	ctx := c.Request.Context()

	meeting, err := h.meetingSvc.Load(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if !ensureClubLead(c, meeting.ClubID) {
		return
	}

	buf, filename, err := h.exportSvc.ExportMeetingAttendance(ctx, meeting.MeetingID)
	if err != nil {
		if errors.Is(err, service.ErrExportGenerateFail) {
			response.InternalError(c)
			return
		}
		respondError(c, err)
		return
	}

	// 设置下载响应头
	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
