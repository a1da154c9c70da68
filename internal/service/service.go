package service

import (
	"time"

	"go.uber.org/zap"

	"github.com/krrishnaik/Markly/config"
	"github.com/krrishnaik/Markly/internal/model"
	"github.com/krrishnaik/Markly/internal/repository"
	"github.com/krrishnaik/Markly/pkg/jwt"
)

// Clock 返回当前时间；测试中注入固定时间
type Clock func() time.Time

// Service 所有 Service 的聚合入口
type Service struct {
	Auth         AuthService
	Club         ClubService
	Announcement AnnouncementService
	Meeting      MeetingService
	Attendance   AttendanceService
	Conflict     ConflictService
	Lecture      LectureService
	Export       ExportService
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	logger *zap.Logger,
) *Service {
	return newService(cfg, repo, jwtMgr, time.Now, logger)
}

func newService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	clock Clock,
	logger *zap.Logger,
) *Service {
	loc := cfg.Meeting.Location()

	meetings := NewMeetingService(repo, loc, clock, logger)
	attendance := NewAttendanceService(repo, meetings, loc, clock, logger)

	return &Service{
		Auth:         NewAuthService(cfg, repo, jwtMgr, logger),
		Club:         NewClubService(repo, logger),
		Announcement: NewAnnouncementService(repo, loc, clock, logger),
		Meeting:      meetings,
		Attendance:   attendance,
		Conflict:     NewConflictService(repo, attendance, clock, logger),
		Lecture:      NewLectureService(repo, loc, logger),
		Export:       NewExportService(repo, logger),
	}
}

// today 返回 loc 时区下的当前日期与时刻（YYYY-MM-DD, HH:MM）
func today(clock Clock, loc *time.Location) (date, clockTime string) {
	now := clock().In(loc)
	return now.Format(model.DateLayout), now.Format(model.ClockLayout)
}
