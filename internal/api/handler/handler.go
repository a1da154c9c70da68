package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/krrishnaik/Markly/internal/service"
	pkgerrors "github.com/krrishnaik/Markly/pkg/errors"
	"github.com/krrishnaik/Markly/pkg/redis"
	"github.com/krrishnaik/Markly/pkg/response"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth       *AuthHandler
	Club       *ClubHandler
	Meeting    *MeetingHandler
	Attendance *AttendanceHandler
	Conflict   *ConflictHandler
	Lecture    *LectureHandler
	Export     *ExportHandler
}

// NewHandler 创建 Handler 聚合；rdb 可为 nil（登出时不写黑名单）
func NewHandler(svc *service.Service, rdb *redis.Client, logger *zap.Logger) *Handler {
	scope := &clubScope{auth: svc.Auth, clubs: svc.Club}
	return &Handler{
		Auth:       NewAuthHandler(svc.Auth, rdb, logger),
		Club:       NewClubHandler(svc.Club, svc.Announcement, scope),
		Meeting:    NewMeetingHandler(svc.Meeting, svc.Attendance, scope, logger),
		Attendance: NewAttendanceHandler(svc.Attendance),
		Conflict:   NewConflictHandler(svc.Conflict),
		Lecture:    NewLectureHandler(svc.Lecture),
		Export:     NewExportHandler(svc.Export, svc.Meeting),
	}
}

// ── 错误映射 ──

// respondError 将 Service 层错误映射为统一响应
//
//	校验失败        400 / 20001
//	会议已结束      409 / 30001
//	状态变更不合法  409 / 30002
//	版本冲突        409 / 30003
//	资源不存在      404 / 10006
func respondError(c *gin.Context, err error) {
	if reason, ok := pkgerrors.IsValidation(err); ok {
		response.ErrorWithDetails(c, http.StatusBadRequest, response.CodeValidation, "参数校验失败", reason)
		return
	}

	switch {
	case errors.Is(err, pkgerrors.ErrMeetingClosed):
		response.Conflict(c, response.CodeMeetingClosed, err.Error())
	case errors.Is(err, pkgerrors.ErrInvalidTransition):
		response.Conflict(c, response.CodeInvalidTransition, err.Error())
	case errors.Is(err, pkgerrors.ErrConflict):
		response.Conflict(c, response.CodeVersionConflict, err.Error())
	case errors.Is(err, pkgerrors.ErrNotFound):
		response.NotFound(c, response.CodeNotFound, err.Error())
	case errors.Is(err, service.ErrICSParse):
		response.ErrorWithDetails(c, http.StatusBadRequest, response.CodeBadRequest, service.ErrICSParse.Error(), err.Error())
	default:
		response.InternalError(c)
	}
}

// bindFailed 请求体 / 查询参数绑定失败
func bindFailed(c *gin.Context, err error) {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		response.Error(c, http.StatusRequestEntityTooLarge, response.CodeBodyTooLarge, "请求体过大")
		return
	}
	response.ErrorWithDetails(c, http.StatusBadRequest, response.CodeBadRequest, "参数校验失败", err.Error())
}
