package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/krrishnaik/Markly/internal/dto"
	"github.com/krrishnaik/Markly/internal/model"
	"github.com/krrishnaik/Markly/internal/service"
	"github.com/krrishnaik/Markly/pkg/response"
)

// AttendanceHandler 考勤模块 HTTP 处理器
type AttendanceHandler struct {
	attendanceSvc service.AttendanceService
}

// NewAttendanceHandler 创建 AttendanceHandler
func NewAttendanceHandler(attendanceSvc service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendanceSvc: attendanceSvc}
}

// Declare 学生自报出席
// POST /api/v1/meetings/:id/declare
func (h *AttendanceHandler) Declare(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	record, err := h.attendanceSvc.Declare(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, record)
}

// Decide 负责人确认（PRESENT）或驳回（ABSENT）；可用 If-Match 携带期望版本
// PUT /api/v1/attendance/:id/decision
func (h *AttendanceHandler) Decide(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.LeadDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	version, ok := expectedVersion(c, req.ExpectedVersion)
	if !ok {
		return
	}

	recordID := c.Param("id")
	meeting, err := h.attendanceSvc.MeetingOfRecord(c.Request.Context(), recordID)
	if err != nil {
		respondError(c, err)
		return
	}
	if !ensureClubLead(c, meeting.ClubID) {
		return
	}

	record, err := h.attendanceSvc.SetLeadDecision(
		c.Request.Context(), recordID, model.AttendanceStatus(req.Decision), version, userID,
	)
	if err != nil {
		respondError(c, err)
		return
	}
	setVersionTag(c, record.Version)
	response.OK(c, record)
}

// Excuse 教师豁免缺勤
// PUT /api/v1/attendance/:id/excuse
func (h *AttendanceHandler) Excuse(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.ExcuseRequest
	// 请求体可省略
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			bindFailed(c, err)
			return
		}
	}

	version, ok := expectedVersion(c, req.ExpectedVersion)
	if !ok {
		return
	}

	record, err := h.attendanceSvc.Excuse(c.Request.Context(), c.Param("id"), version, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	setVersionTag(c, record.Version)
	response.OK(c, record)
}

// Mine 当前学生的全部考勤记录
// GET /api/v1/attendance/me
func (h *AttendanceHandler) Mine(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	list, err := h.attendanceSvc.RecordsForStudent(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.OKList(c, list)
}

// History 当前学生的考勤历史，按会议日期倒序
// GET /api/v1/attendance/history?club_id=xxx
func (h *AttendanceHandler) History(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.HistoryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}
	var clubID *string
	if req.ClubID != "" {
		clubID = &req.ClubID
	}

	list, err := h.attendanceSvc.HistoryForStudent(c.Request.Context(), userID, clubID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.OKList(c, list)
}

// Summary 当前学生的考勤统计
// GET /api/v1/attendance/summary
func (h *AttendanceHandler) Summary(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	summary, err := h.attendanceSvc.SummaryForStudent(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, summary)
}
