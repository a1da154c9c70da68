package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/krrishnaik/Markly/internal/dto"
	"github.com/krrishnaik/Markly/internal/model"
	"github.com/krrishnaik/Markly/internal/repository"
	pkgerrors "github.com/krrishnaik/Markly/pkg/errors"
	"github.com/krrishnaik/Markly/pkg/metrics"
)

// ── 考勤模块业务错误 ──

var (
	ErrRecordNotFound       = pkgerrors.New(pkgerrors.ErrNotFound, "考勤记录不存在")
	ErrStudentNotFound      = pkgerrors.New(pkgerrors.ErrNotFound, "学生不存在")
	ErrTransitionNotAllowed = pkgerrors.New(pkgerrors.ErrInvalidTransition, "当前考勤状态不允许该操作")
	ErrInvalidDecision      = pkgerrors.New(pkgerrors.ErrInvalidTransition, "负责人判定只能是 PRESENT 或 ABSENT")
	ErrAttendanceClosed     = pkgerrors.New(pkgerrors.ErrMeetingClosed, "会议已结束，考勤不可修改")
	ErrStaleRecord          = pkgerrors.New(pkgerrors.ErrConflict, "考勤记录已被修改，请刷新后重试")
)

// AttendanceService 考勤登记：记录的唯一写入口，负责状态变更与查询
type AttendanceService interface {
	// Declare 学生自报出席；已声明时原样返回
	Declare(ctx context.Context, meetingID, studentID string) (*dto.AttendanceRecordResponse, error)
	// SetLeadDecision 负责人确认（PRESENT）或驳回（ABSENT）
	SetLeadDecision(ctx context.Context, recordID string, decision model.AttendanceStatus, expectedVersion *int, actorID string) (*dto.AttendanceRecordResponse, error)
	// Excuse 教师豁免，仅 ABSENT 可转为 EXCUSED；会议定稿后仍可执行
	Excuse(ctx context.Context, recordID string, expectedVersion *int, actorID string) (*dto.AttendanceRecordResponse, error)
	// Finalize 锁定会议全部记录并结束会议，幂等
	Finalize(ctx context.Context, meetingID string) (*dto.FinalizeResponse, error)
	// FinalizeEnded 定稿所有已过结束时间仍未结束的会议，返回处理数量
	FinalizeEnded(ctx context.Context) (int, error)
	// OpenRoster 为社团全部学生建立 NOT_DECLARED 记录，幂等
	OpenRoster(ctx context.Context, meetingID string) (*dto.RosterResponse, error)

	RecordsForMeeting(ctx context.Context, meetingID string) ([]dto.AttendanceRecordResponse, error)
	RecordsForStudent(ctx context.Context, studentID string) ([]dto.AttendanceRecordResponse, error)
	// HistoryForStudent 按会议日期倒序；clubID 非空时仅返回该社团的会议
	HistoryForStudent(ctx context.Context, studentID string, clubID *string) ([]dto.HistoryEntryResponse, error)
	SummaryForStudent(ctx context.Context, studentID string) (*dto.StudentSummaryResponse, error)
	MeetingSummary(ctx context.Context, meetingID string) (*dto.MeetingSummaryResponse, error)

	// MeetingOfRecord 查询记录所属会议，供接口层做社团归属校验
	MeetingOfRecord(ctx context.Context, recordID string) (*model.Meeting, error)
	// WithTx 返回绑定到事务仓储的副本
	WithTx(tx *repository.Repository) AttendanceService
}

type attendanceService struct {
	repo     *repository.Repository
	meetings MeetingService
	loc      *time.Location
	clock    Clock
	logger   *zap.Logger
}

// NewAttendanceService 创建 AttendanceService 实例
func NewAttendanceService(
	repo *repository.Repository,
	meetings MeetingService,
	loc *time.Location,
	clock Clock,
	logger *zap.Logger,
) AttendanceService {
	if loc == nil {
		loc = time.UTC
	}
	if clock == nil {
		clock = time.Now
	}
	return &attendanceService{repo: repo, meetings: meetings, loc: loc, clock: clock, logger: logger}
}

func (s *attendanceService) WithTx(tx *repository.Repository) AttendanceService {
	cp := *s
	cp.repo = tx
	cp.meetings = s.meetings.WithTx(tx)
	return &cp
}

// ════════════════════════════════════════════════════════════
// Declare
// ════════════════════════════════════════════════════════════

func (s *attendanceService) Declare(ctx context.Context, meetingID, studentID string) (*dto.AttendanceRecordResponse, error) {
	meeting, err := s.meetings.Load(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if meeting.IsClosed() {
		s.observe(model.ActionDeclare, ErrAttendanceClosed)
		return nil, ErrAttendanceClosed
	}
	if _, err := s.repo.User.GetByID(ctx, studentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		s.logger.Error("查询学生失败", zap.String("student_id", studentID), zap.Error(err))
		return nil, err
	}

	rec, err := s.repo.Attendance.GetByMeetingAndStudent(ctx, meetingID, studentID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		rec = &model.AttendanceRecord{
			MeetingID: meetingID,
			StudentID: studentID,
			Status:    model.StatusNotDeclared,
		}
		rec.Apply(model.ActionDeclare, studentID, s.clock())
		err = s.repo.Attendance.Create(ctx, rec)
		if err == nil {
			s.observe(model.ActionDeclare, nil)
			resp := toRecordResponse(rec)
			return &resp, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			s.logger.Error("创建考勤记录失败", zap.Error(err))
			return nil, err
		}
		// 并发创建：回读已存在的记录后走更新路径
		rec, err = s.repo.Attendance.GetByMeetingAndStudent(ctx, meetingID, studentID)
		if err != nil {
			return nil, err
		}
	case err != nil:
		s.logger.Error("查询考勤记录失败", zap.Error(err))
		return nil, err
	}

	if rec.Status == model.StatusDeclared {
		resp := toRecordResponse(rec)
		return &resp, nil
	}
	return s.transition(ctx, rec, model.ActionDeclare, nil, studentID)
}

// ════════════════════════════════════════════════════════════
// SetLeadDecision / Excuse
// ════════════════════════════════════════════════════════════

func (s *attendanceService) SetLeadDecision(
	ctx context.Context,
	recordID string,
	decision model.AttendanceStatus,
	expectedVersion *int,
	actorID string,
) (*dto.AttendanceRecordResponse, error) {
	rec, err := s.loadRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	meeting, err := s.meetings.Load(ctx, rec.MeetingID)
	if err != nil {
		return nil, err
	}
	if meeting.IsClosed() || rec.LockedAt != nil {
		s.observe(model.ActionMarkPresent, ErrAttendanceClosed)
		return nil, ErrAttendanceClosed
	}

	action, ok := model.DecisionAction(decision)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDecision, decision)
	}
	return s.transition(ctx, rec, action, expectedVersion, actorID)
}

func (s *attendanceService) Excuse(ctx context.Context, recordID string, expectedVersion *int, actorID string) (*dto.AttendanceRecordResponse, error) {
	rec, err := s.loadRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, rec, model.ActionExcuse, expectedVersion, actorID)
}

// transition 校验版本并执行状态变更；失败时存储中的记录保持不变
func (s *attendanceService) transition(
	ctx context.Context,
	rec *model.AttendanceRecord,
	action model.AttendanceAction,
	expectedVersion *int,
	actorID string,
) (*dto.AttendanceRecordResponse, error) {
	if expectedVersion != nil && *expectedVersion != rec.Version {
		s.observe(action, ErrStaleRecord)
		return nil, ErrStaleRecord
	}

	from := rec.Status
	if !rec.Apply(action, actorID, s.clock()) {
		s.observe(action, ErrTransitionNotAllowed)
		return nil, fmt.Errorf("%w: %s 不可执行 %s", ErrTransitionNotAllowed, from, action)
	}

	if err := s.repo.Attendance.Update(ctx, rec); err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			s.observe(action, ErrStaleRecord)
			return nil, ErrStaleRecord
		}
		s.logger.Error("更新考勤记录失败", zap.String("record_id", rec.RecordID), zap.Error(err))
		return nil, err
	}

	s.observe(action, nil)
	s.logger.Debug("考勤状态变更",
		zap.String("record_id", rec.RecordID),
		zap.String("from", string(from)),
		zap.String("to", string(rec.Status)),
		zap.String("actor", actorID),
	)
	resp := toRecordResponse(rec)
	return &resp, nil
}

// ════════════════════════════════════════════════════════════
// Finalize
// ════════════════════════════════════════════════════════════

func (s *attendanceService) Finalize(ctx context.Context, meetingID string) (*dto.FinalizeResponse, error) {
	return s.finalize(ctx, meetingID, "manual")
}

func (s *attendanceService) finalize(ctx context.Context, meetingID, trigger string) (*dto.FinalizeResponse, error) {
	var (
		meeting *model.Meeting
		locked  int64
	)
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		m, err := tx.Meeting.GetByID(ctx, meetingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMeetingNotFound
			}
			return err
		}
		wasOpen := !m.IsClosed()

		locked, err = tx.Attendance.LockByMeeting(ctx, meetingID, s.clock())
		if err != nil {
			return err
		}
		if err := completeMeeting(ctx, tx, m); err != nil {
			return err
		}
		if wasOpen {
			metrics.MeetingsFinalized.WithLabelValues(trigger).Inc()
		}
		meeting = m
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrMeetingNotFound) {
			s.logger.Error("会议定稿失败", zap.String("meeting_id", meetingID), zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("会议已定稿",
		zap.String("meeting_id", meetingID),
		zap.String("trigger", trigger),
		zap.Int64("locked_records", locked),
	)
	return &dto.FinalizeResponse{Meeting: toMeetingResponse(meeting), LockedRecords: locked}, nil
}

func (s *attendanceService) FinalizeEnded(ctx context.Context) (int, error) {
	date, clock := today(s.clock, s.loc)

	ended, err := s.repo.Meeting.ListEndedScheduled(ctx, date, clock)
	if err != nil {
		s.logger.Error("查询已结束会议失败", zap.Error(err))
		return 0, err
	}

	var (
		done int
		errs []error
	)
	for _, m := range ended {
		if _, err := s.finalize(ctx, m.MeetingID, "auto"); err != nil {
			errs = append(errs, fmt.Errorf("meeting %s: %w", m.MeetingID, err))
			continue
		}
		done++
	}
	return done, errors.Join(errs...)
}

// ════════════════════════════════════════════════════════════
// OpenRoster
// ════════════════════════════════════════════════════════════

func (s *attendanceService) OpenRoster(ctx context.Context, meetingID string) (*dto.RosterResponse, error) {
	meeting, err := s.meetings.Load(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if meeting.IsClosed() {
		return nil, ErrAttendanceClosed
	}

	students, err := s.repo.User.ListStudentsByClub(ctx, meeting.ClubID)
	if err != nil {
		s.logger.Error("查询社团学生失败", zap.String("club_id", meeting.ClubID), zap.Error(err))
		return nil, err
	}
	existing, err := s.repo.Attendance.ListByMeeting(ctx, meetingID)
	if err != nil {
		s.logger.Error("查询会议考勤失败", zap.Error(err))
		return nil, err
	}
	has := make(map[string]bool, len(existing))
	for _, r := range existing {
		has[r.StudentID] = true
	}

	created := 0
	for _, st := range students {
		if has[st.UserID] {
			continue
		}
		rec := &model.AttendanceRecord{
			MeetingID: meetingID,
			StudentID: st.UserID,
			Status:    model.StatusNotDeclared,
		}
		if err := s.repo.Attendance.Create(ctx, rec); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				continue
			}
			s.logger.Error("建立签到名单失败", zap.String("student_id", st.UserID), zap.Error(err))
			return nil, err
		}
		created++
	}
	return &dto.RosterResponse{MeetingID: meetingID, Created: created}, nil
}

// ════════════════════════════════════════════════════════════
// 查询
// ════════════════════════════════════════════════════════════

func (s *attendanceService) RecordsForMeeting(ctx context.Context, meetingID string) ([]dto.AttendanceRecordResponse, error) {
	if _, err := s.meetings.Load(ctx, meetingID); err != nil {
		return nil, err
	}
	recs, err := s.repo.Attendance.ListByMeeting(ctx, meetingID)
	if err != nil {
		s.logger.Error("查询会议考勤失败", zap.String("meeting_id", meetingID), zap.Error(err))
		return nil, err
	}
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].StudentID < recs[j].StudentID })

	result := make([]dto.AttendanceRecordResponse, 0, len(recs))
	for i := range recs {
		result = append(result, toRecordResponse(&recs[i]))
	}
	return result, nil
}

func (s *attendanceService) RecordsForStudent(ctx context.Context, studentID string) ([]dto.AttendanceRecordResponse, error) {
	recs, err := s.studentRecords(ctx, studentID, nil)
	if err != nil {
		return nil, err
	}
	result := make([]dto.AttendanceRecordResponse, 0, len(recs))
	for i := range recs {
		result = append(result, toRecordResponse(&recs[i]))
	}
	return result, nil
}

func (s *attendanceService) HistoryForStudent(ctx context.Context, studentID string, clubID *string) ([]dto.HistoryEntryResponse, error) {
	recs, err := s.studentRecords(ctx, studentID, clubID)
	if err != nil {
		return nil, err
	}
	result := make([]dto.HistoryEntryResponse, 0, len(recs))
	for i := range recs {
		result = append(result, dto.HistoryEntryResponse{
			Record:  toRecordResponse(&recs[i]),
			Meeting: toMeetingResponse(recs[i].Meeting),
		})
	}
	return result, nil
}

// studentRecords 学生记录（含会议），按会议日期、开始时间倒序，记录 ID 升序
func (s *attendanceService) studentRecords(ctx context.Context, studentID string, clubID *string) ([]model.AttendanceRecord, error) {
	recs, err := s.repo.Attendance.ListByStudent(ctx, studentID)
	if err != nil {
		s.logger.Error("查询学生考勤失败", zap.String("student_id", studentID), zap.Error(err))
		return nil, err
	}

	kept := recs[:0]
	for _, r := range recs {
		if r.Meeting == nil {
			continue
		}
		if clubID != nil && r.Meeting.ClubID != *clubID {
			continue
		}
		kept = append(kept, r)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		a, b := kept[i], kept[j]
		if a.Meeting.Date != b.Meeting.Date {
			return a.Meeting.Date > b.Meeting.Date
		}
		if a.Meeting.StartTime != b.Meeting.StartTime {
			return a.Meeting.StartTime > b.Meeting.StartTime
		}
		return a.RecordID < b.RecordID
	})
	return kept, nil
}

func (s *attendanceService) SummaryForStudent(ctx context.Context, studentID string) (*dto.StudentSummaryResponse, error) {
	recs, err := s.repo.Attendance.ListByStudent(ctx, studentID)
	if err != nil {
		s.logger.Error("查询学生考勤失败", zap.String("student_id", studentID), zap.Error(err))
		return nil, err
	}
	counts := countStatuses(recs)

	resp := &dto.StudentSummaryResponse{StudentID: studentID, Counts: counts}
	if decided := counts.Present + counts.Absent + counts.Excused; decided > 0 {
		resp.AttendanceRate = float64(counts.Present+counts.Excused) / float64(decided)
	}
	return resp, nil
}

func (s *attendanceService) MeetingSummary(ctx context.Context, meetingID string) (*dto.MeetingSummaryResponse, error) {
	if _, err := s.meetings.Load(ctx, meetingID); err != nil {
		return nil, err
	}
	recs, err := s.repo.Attendance.ListByMeeting(ctx, meetingID)
	if err != nil {
		s.logger.Error("查询会议考勤失败", zap.String("meeting_id", meetingID), zap.Error(err))
		return nil, err
	}
	counts := countStatuses(recs)
	return &dto.MeetingSummaryResponse{MeetingID: meetingID, Counts: counts, Pending: counts.Declared}, nil
}

func (s *attendanceService) MeetingOfRecord(ctx context.Context, recordID string) (*model.Meeting, error) {
	rec, err := s.loadRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	return s.meetings.Load(ctx, rec.MeetingID)
}

// ── 辅助函数 ──

func (s *attendanceService) loadRecord(ctx context.Context, recordID string) (*model.AttendanceRecord, error) {
	rec, err := s.repo.Attendance.GetByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		s.logger.Error("查询考勤记录失败", zap.String("record_id", recordID), zap.Error(err))
		return nil, err
	}
	return rec, nil
}

func (s *attendanceService) observe(action model.AttendanceAction, err error) {
	outcome := metrics.OutcomeOK
	switch {
	case err == nil:
	case errors.Is(err, pkgerrors.ErrConflict):
		outcome = metrics.OutcomeConflict
	default:
		outcome = metrics.OutcomeRejected
	}
	metrics.AttendanceTransitions.WithLabelValues(string(action), outcome).Inc()
}
