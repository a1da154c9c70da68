package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/krrishnaik/Markly/internal/dto"
	"github.com/krrishnaik/Markly/internal/service"
	"github.com/krrishnaik/Markly/pkg/response"
)

// MeetingHandler 会议模块 HTTP 处理器
type MeetingHandler struct {
	meetingSvc    service.MeetingService
	attendanceSvc service.AttendanceService
	scope         *clubScope
	logger        *zap.Logger
}

// NewMeetingHandler 创建 MeetingHandler
func NewMeetingHandler(
	meetingSvc service.MeetingService,
	attendanceSvc service.AttendanceService,
	scope *clubScope,
	logger *zap.Logger,
) *MeetingHandler {
	return &MeetingHandler{
		meetingSvc:    meetingSvc,
		attendanceSvc: attendanceSvc,
		scope:         scope,
		logger:        logger,
	}
}

// Create 负责人为本社团创建会议，并为社团学生开放签到名单
// POST /api/v1/meetings
func (h *MeetingHandler) Create(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateMeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	if req.ClubID == "" {
		req.ClubID = GetClubID(c)
	}
	if !ensureClubLead(c, req.ClubID) {
		return
	}

	ctx := c.Request.Context()
	meeting, err := h.meetingSvc.Create(ctx, &req, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	// 名单可通过 /meetings/:id/roster 重新开放，这里失败不回滚会议
	if _, err := h.attendanceSvc.OpenRoster(ctx, meeting.ID); err != nil {
		h.logger.Warn("开放签到名单失败", zap.String("meeting_id", meeting.ID), zap.Error(err))
	}

	response.Created(c, meeting)
}

// List 社团会议列表
// GET /api/v1/meetings?club_id=xxx&status=SCHEDULED
func (h *MeetingHandler) List(c *gin.Context) {
	var req dto.MeetingListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}
	clubID, ok := h.clubParam(c, req.ClubID)
	if !ok {
		return
	}

	var status *string
	if req.Status != "" {
		status = &req.Status
	}
	list, err := h.meetingSvc.ListByClub(c.Request.Context(), clubID, status)
	if err != nil {
		respondError(c, err)
		return
	}
	response.OKList(c, list)
}

// Upcoming 当前用户可见社团的未结束会议
// GET /api/v1/meetings/upcoming
func (h *MeetingHandler) Upcoming(c *gin.Context) {
	clubIDs, ok := h.scope.clubIDs(c)
	if !ok {
		return
	}

	list, err := h.meetingSvc.ListUpcoming(c.Request.Context(), clubIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	response.OKList(c, list)
}

// Past 社团的历史会议
// GET /api/v1/meetings/past?club_id=xxx
func (h *MeetingHandler) Past(c *gin.Context) {
	clubID, ok := h.clubParam(c, c.Query("club_id"))
	if !ok {
		return
	}

	list, err := h.meetingSvc.ListPast(c.Request.Context(), clubID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.OKList(c, list)
}

// Get 会议详情
// GET /api/v1/meetings/:id
func (h *MeetingHandler) Get(c *gin.Context) {
	meeting, err := h.meetingSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, meeting)
}

// Complete 结束会议（不锁定考勤）
// POST /api/v1/meetings/:id/complete
func (h *MeetingHandler) Complete(c *gin.Context) {
	meetingID, ok := h.ownedMeeting(c)
	if !ok {
		return
	}

	meeting, err := h.meetingSvc.Complete(c.Request.Context(), meetingID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, meeting)
}

// Finalize 提交最终考勤：锁定全部记录并结束会议
// POST /api/v1/meetings/:id/finalize
func (h *MeetingHandler) Finalize(c *gin.Context) {
	meetingID, ok := h.ownedMeeting(c)
	if !ok {
		return
	}

	result, err := h.attendanceSvc.Finalize(c.Request.Context(), meetingID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, result)
}

// OpenRoster 为社团学生补建签到记录
// POST /api/v1/meetings/:id/roster
func (h *MeetingHandler) OpenRoster(c *gin.Context) {
	meetingID, ok := h.ownedMeeting(c)
	if !ok {
		return
	}

	result, err := h.attendanceSvc.OpenRoster(c.Request.Context(), meetingID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, result)
}

// Attendance 会议的全部考勤记录
// GET /api/v1/meetings/:id/attendance
func (h *MeetingHandler) Attendance(c *gin.Context) {
	meetingID, ok := h.ownedMeeting(c)
	if !ok {
		return
	}

	list, err := h.attendanceSvc.RecordsForMeeting(c.Request.Context(), meetingID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.OKList(c, list)
}

// Summary 会议考勤统计
// GET /api/v1/meetings/:id/summary
func (h *MeetingHandler) Summary(c *gin.Context) {
	meetingID, ok := h.ownedMeeting(c)
	if !ok {
		return
	}

	summary, err := h.attendanceSvc.MeetingSummary(c.Request.Context(), meetingID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, summary)
}

// ── 内部辅助 ──

// clubParam 显式传入的 club_id 优先，负责人缺省为本社团
func (h *MeetingHandler) clubParam(c *gin.Context, clubID string) (string, bool) {
	if clubID == "" {
		clubID = GetClubID(c)
	}
	if clubID == "" {
		response.BadRequest(c, response.CodeBadRequest, "club_id 不能为空")
		return "", false
	}
	return clubID, true
}

// ownedMeeting 校验路径中的会议存在且（负责人）属于本社团
func (h *MeetingHandler) ownedMeeting(c *gin.Context) (string, bool) {
	meeting, err := h.meetingSvc.Load(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return "", false
	}
	if !ensureClubLead(c, meeting.ClubID) {
		return "", false
	}
	return meeting.MeetingID, true
}
