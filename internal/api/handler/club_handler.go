package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/krrishnaik/Markly/internal/dto"
	"github.com/krrishnaik/Markly/internal/service"
	"github.com/krrishnaik/Markly/pkg/response"
)

// ClubHandler 社团与公告 HTTP 处理器
type ClubHandler struct {
	clubSvc         service.ClubService
	announcementSvc service.AnnouncementService
	scope           *clubScope
}

// NewClubHandler 创建 ClubHandler
func NewClubHandler(clubSvc service.ClubService, announcementSvc service.AnnouncementService, scope *clubScope) *ClubHandler {
	return &ClubHandler{clubSvc: clubSvc, announcementSvc: announcementSvc, scope: scope}
}

// List 社团列表
// GET /api/v1/clubs
func (h *ClubHandler) List(c *gin.Context) {
	clubs, err := h.clubSvc.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	response.OKList(c, clubs)
}

// Get 社团详情
// GET /api/v1/clubs/:id
func (h *ClubHandler) Get(c *gin.Context) {
	club, err := h.clubSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, club)
}

// ListAnnouncements 当前用户可见社团的公告，按日期倒序
// GET /api/v1/announcements
func (h *ClubHandler) ListAnnouncements(c *gin.Context) {
	clubIDs, ok := h.scope.clubIDs(c)
	if !ok {
		return
	}

	list, err := h.announcementSvc.ListForClubs(c.Request.Context(), clubIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	response.OKList(c, list)
}

// CreateAnnouncement 负责人发布本社团公告
// POST /api/v1/clubs/:id/announcements
func (h *ClubHandler) CreateAnnouncement(c *gin.Context) {
	clubID := c.Param("id")
	if !ensureClubLead(c, clubID) {
		return
	}
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateAnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	result, err := h.announcementSvc.Create(c.Request.Context(), clubID, &req, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Created(c, result)
}
