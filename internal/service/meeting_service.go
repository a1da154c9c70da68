package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/krrishnaik/Markly/internal/dto"
	"github.com/krrishnaik/Markly/internal/model"
	"github.com/krrishnaik/Markly/internal/repository"
	pkgerrors "github.com/krrishnaik/Markly/pkg/errors"
)

// ── 会议模块业务错误 ──

var (
	ErrMeetingNotFound = pkgerrors.New(pkgerrors.ErrNotFound, "会议不存在")
	ErrClubNotFound    = pkgerrors.New(pkgerrors.ErrNotFound, "社团不存在")
)

// 创建会议的校验原因（面向调用方）
const (
	ReasonEndBeforeStart = "end time must be after start time"
	ReasonPastDate       = "cannot schedule in the past"
	ReasonBadDate        = "date must be YYYY-MM-DD"
	ReasonBadTime        = "time must be HH:MM"
	ReasonTitleRequired  = "title is required"
)

// MeetingService 会议目录：会议生命周期 SCHEDULED → COMPLETED 与创建校验
type MeetingService interface {
	// Create 创建会议，成功后状态为 SCHEDULED
	Create(ctx context.Context, req *dto.CreateMeetingRequest, callerID string) (*dto.MeetingResponse, error)
	GetByID(ctx context.Context, meetingID string) (*dto.MeetingResponse, error)
	// ListByClub 社团会议，按日期、开始时间升序；status 为空时不过滤
	ListByClub(ctx context.Context, clubID string, status *string) ([]dto.MeetingResponse, error)
	// ListUpcoming 未结束且日期不早于今天的会议，升序
	ListUpcoming(ctx context.Context, clubIDs []string) ([]dto.MeetingResponse, error)
	// ListPast 已结束或日期早于今天的会议，降序
	ListPast(ctx context.Context, clubID string) ([]dto.MeetingResponse, error)
	// Complete 标记会议结束，幂等
	Complete(ctx context.Context, meetingID string) (*dto.MeetingResponse, error)

	// Load 读取会议实体，供考勤与冲突模块使用
	Load(ctx context.Context, meetingID string) (*model.Meeting, error)
	// WithTx 返回绑定到事务仓储的副本
	WithTx(tx *repository.Repository) MeetingService
}

type meetingService struct {
	repo   *repository.Repository
	loc    *time.Location
	clock  Clock
	logger *zap.Logger
}

// NewMeetingService 创建 MeetingService 实例
func NewMeetingService(repo *repository.Repository, loc *time.Location, clock Clock, logger *zap.Logger) MeetingService {
	if loc == nil {
		loc = time.UTC
	}
	if clock == nil {
		clock = time.Now
	}
	return &meetingService{repo: repo, loc: loc, clock: clock, logger: logger}
}

func (s *meetingService) WithTx(tx *repository.Repository) MeetingService {
	cp := *s
	cp.repo = tx
	return &cp
}

// ════════════════════════════════════════════════════════════
// Create
// ════════════════════════════════════════════════════════════

func (s *meetingService) Create(ctx context.Context, req *dto.CreateMeetingRequest, callerID string) (*dto.MeetingResponse, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	club, err := s.repo.Club.GetByID(ctx, req.ClubID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClubNotFound
		}
		s.logger.Error("查询社团失败", zap.String("club_id", req.ClubID), zap.Error(err))
		return nil, err
	}

	meeting := &model.Meeting{
		ClubID:      club.ClubID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Date:        req.Date,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Location:    req.Location,
		Status:      model.MeetingScheduled,
		CreatedBy:   callerID,
	}
	if err := s.repo.Meeting.Create(ctx, meeting); err != nil {
		s.logger.Error("创建会议失败", zap.Error(err))
		return nil, err
	}
	meeting.Club = club

	s.logger.Info("会议已创建",
		zap.String("meeting_id", meeting.MeetingID),
		zap.String("club_id", meeting.ClubID),
		zap.String("date", meeting.Date),
	)
	resp := toMeetingResponse(meeting)
	return &resp, nil
}

// validate 校验顺序：格式 → 开始早于结束 → 日期不早于今天
func (s *meetingService) validate(req *dto.CreateMeetingRequest) error {
	if strings.TrimSpace(req.Title) == "" {
		return pkgerrors.NewValidation(ReasonTitleRequired)
	}
	if !model.ValidDate(req.Date) {
		return pkgerrors.NewValidation(ReasonBadDate)
	}
	if !model.ValidClock(req.StartTime) || !model.ValidClock(req.EndTime) {
		return pkgerrors.NewValidation(ReasonBadTime)
	}
	if req.StartTime >= req.EndTime {
		return pkgerrors.NewValidation(ReasonEndBeforeStart)
	}
	todayDate, _ := today(s.clock, s.loc)
	if req.Date < todayDate {
		return pkgerrors.NewValidation(ReasonPastDate)
	}
	return nil
}

// ════════════════════════════════════════════════════════════
// 查询
// ════════════════════════════════════════════════════════════

func (s *meetingService) Load(ctx context.Context, meetingID string) (*model.Meeting, error) {
	meeting, err := s.repo.Meeting.GetByID(ctx, meetingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMeetingNotFound
		}
		s.logger.Error("查询会议失败", zap.String("meeting_id", meetingID), zap.Error(err))
		return nil, err
	}
	return meeting, nil
}

func (s *meetingService) GetByID(ctx context.Context, meetingID string) (*dto.MeetingResponse, error) {
	meeting, err := s.Load(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	resp := toMeetingResponse(meeting)
	return &resp, nil
}

func (s *meetingService) ListByClub(ctx context.Context, clubID string, status *string) ([]dto.MeetingResponse, error) {
	meetings, err := s.repo.Meeting.ListByClubs(ctx, []string{clubID}, status)
	if err != nil {
		s.logger.Error("查询社团会议失败", zap.String("club_id", clubID), zap.Error(err))
		return nil, err
	}
	sortMeetings(meetings, true)
	return toMeetingResponses(meetings), nil
}

func (s *meetingService) ListUpcoming(ctx context.Context, clubIDs []string) ([]dto.MeetingResponse, error) {
	status := model.MeetingScheduled
	meetings, err := s.repo.Meeting.ListByClubs(ctx, clubIDs, &status)
	if err != nil {
		s.logger.Error("查询即将开始的会议失败", zap.Error(err))
		return nil, err
	}

	todayDate, _ := today(s.clock, s.loc)
	upcoming := meetings[:0]
	for _, m := range meetings {
		if m.Date >= todayDate {
			upcoming = append(upcoming, m)
		}
	}
	sortMeetings(upcoming, true)
	return toMeetingResponses(upcoming), nil
}

func (s *meetingService) ListPast(ctx context.Context, clubID string) ([]dto.MeetingResponse, error) {
	meetings, err := s.repo.Meeting.ListByClubs(ctx, []string{clubID}, nil)
	if err != nil {
		s.logger.Error("查询历史会议失败", zap.String("club_id", clubID), zap.Error(err))
		return nil, err
	}

	todayDate, _ := today(s.clock, s.loc)
	past := meetings[:0]
	for _, m := range meetings {
		if m.IsClosed() || m.Date < todayDate {
			past = append(past, m)
		}
	}
	sortMeetings(past, false)
	return toMeetingResponses(past), nil
}

// ════════════════════════════════════════════════════════════
// Complete
// ════════════════════════════════════════════════════════════

func (s *meetingService) Complete(ctx context.Context, meetingID string) (*dto.MeetingResponse, error) {
	meeting, err := s.Load(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if err := completeMeeting(ctx, s.repo, meeting); err != nil {
		s.logger.Warn("结束会议失败", zap.String("meeting_id", meetingID), zap.Error(err))
		return nil, err
	}
	resp := toMeetingResponse(meeting)
	return &resp, nil
}

// completeMeeting 将会议置为 COMPLETED；已结束时直接返回
func completeMeeting(ctx context.Context, repo *repository.Repository, meeting *model.Meeting) error {
	if meeting.IsClosed() {
		return nil
	}
	meeting.Status = model.MeetingCompleted
	if err := repo.Meeting.Update(ctx, meeting); err != nil {
		meeting.Status = model.MeetingScheduled
		if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return err
		}
		// 并发修改：若对方已将其结束则视为成功
		latest, getErr := repo.Meeting.GetByID(ctx, meeting.MeetingID)
		if getErr != nil || !latest.IsClosed() {
			return err
		}
		*meeting = *latest
	}
	return nil
}

// ── 辅助函数 ──

// sortMeetings 按 (date, start_time, meeting_id) 排序
func sortMeetings(meetings []model.Meeting, asc bool) {
	sort.SliceStable(meetings, func(i, j int) bool {
		a, b := meetings[i], meetings[j]
		if !asc {
			a, b = b, a
		}
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		return a.MeetingID < b.MeetingID
	})
}

func toMeetingResponses(meetings []model.Meeting) []dto.MeetingResponse {
	result := make([]dto.MeetingResponse, 0, len(meetings))
	for i := range meetings {
		result = append(result, toMeetingResponse(&meetings[i]))
	}
	return result
}
