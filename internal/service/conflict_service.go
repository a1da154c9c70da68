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

// ── 冲突模块业务错误 ──

var (
	ErrConflictNotFound       = pkgerrors.New(pkgerrors.ErrNotFound, "冲突不存在")
	ErrConflictRecordNotFound = pkgerrors.New(pkgerrors.ErrNotFound, "该学生在冲突会议上没有考勤记录")
)

const (
	ReasonBadDecision = "decision must be EXCUSE or REJECT"
	ReasonBadRange    = "from must not be after to"
)

// unknownYear 未填写年级的学生分组名
const unknownYear = "unknown"

// ConflictService 课程冲突检测与教师处理
type ConflictService interface {
	// ListPending [from, to] 日期范围内的待处理冲突
	ListPending(ctx context.Context, from, to string) ([]dto.LectureConflictResponse, error)
	// ListPendingByYear 按受影响学生年级分组的待处理冲突
	ListPendingByYear(ctx context.Context, from, to string) ([]dto.ConflictYearGroup, error)
	// Resolve EXCUSE 交由考勤模块豁免；REJECT 仅确认 ABSENT 不变
	Resolve(ctx context.Context, conflictID, studentID, decision, resolverID string) (*dto.ResolutionResponse, error)
	// ListResolved 冲突的处理记录，最新在前
	ListResolved(ctx context.Context, conflictID string) ([]dto.ResolutionResponse, error)
}

type conflictService struct {
	repo       *repository.Repository
	attendance AttendanceService
	clock      Clock
	logger     *zap.Logger
}

// NewConflictService 创建 ConflictService 实例
func NewConflictService(repo *repository.Repository, attendance AttendanceService, clock Clock, logger *zap.Logger) ConflictService {
	if clock == nil {
		clock = time.Now
	}
	return &conflictService{repo: repo, attendance: attendance, clock: clock, logger: logger}
}

// ════════════════════════════════════════════════════════════
// ListPending
// ════════════════════════════════════════════════════════════

func (s *conflictService) ListPending(ctx context.Context, from, to string) ([]dto.LectureConflictResponse, error) {
	conflicts, err := s.detect(ctx, from, to)
	if err != nil {
		return nil, err
	}
	metrics.PendingConflicts.Set(float64(len(conflicts)))
	return s.enrich(ctx, conflicts)
}

func (s *conflictService) ListPendingByYear(ctx context.Context, from, to string) ([]dto.ConflictYearGroup, error) {
	conflicts, err := s.ListPending(ctx, from, to)
	if err != nil {
		return nil, err
	}

	groups := make(map[string][]dto.LectureConflictResponse)
	for _, c := range conflicts {
		byYear := make(map[string][]dto.AffectedStudentResponse)
		for _, st := range c.AffectedStudents {
			year := st.Year
			if year == "" {
				year = unknownYear
			}
			byYear[year] = append(byYear[year], st)
		}
		for year, students := range byYear {
			part := c
			part.AffectedStudents = students
			part.AffectedCount = len(students)
			groups[year] = append(groups[year], part)
		}
	}

	years := make([]string, 0, len(groups))
	for y := range groups {
		years = append(years, y)
	}
	sort.Strings(years)

	result := make([]dto.ConflictYearGroup, 0, len(years))
	for _, y := range years {
		result = append(result, dto.ConflictYearGroup{Year: y, Conflicts: groups[y]})
	}
	return result, nil
}

// detect 加载日期范围内的会议、课程时段与考勤记录并计算冲突
func (s *conflictService) detect(ctx context.Context, from, to string) ([]model.LectureConflict, error) {
	if !model.ValidDate(from) || !model.ValidDate(to) {
		return nil, pkgerrors.NewValidation(ReasonBadDate)
	}
	if from > to {
		return nil, pkgerrors.NewValidation(ReasonBadRange)
	}

	meetings, err := s.repo.Meeting.ListByDateRange(ctx, from, to)
	if err != nil {
		s.logger.Error("查询会议失败", zap.Error(err))
		return nil, err
	}
	slots, err := s.repo.LectureSlot.ListByDateRange(ctx, from, to)
	if err != nil {
		s.logger.Error("查询课程时段失败", zap.Error(err))
		return nil, err
	}
	if len(meetings) == 0 || len(slots) == 0 {
		return nil, nil
	}

	ids := make([]string, len(meetings))
	for i, m := range meetings {
		ids[i] = m.MeetingID
	}
	recs, err := s.repo.Attendance.ListByMeetings(ctx, ids)
	if err != nil {
		s.logger.Error("查询考勤记录失败", zap.Error(err))
		return nil, err
	}

	var conflicts []model.LectureConflict
	for c := range DetectConflicts(meetings, slots, NewRecordIndex(recs)) {
		conflicts = append(conflicts, c)
	}
	return conflicts, nil
}

// enrich 补充学生与社团信息
func (s *conflictService) enrich(ctx context.Context, conflicts []model.LectureConflict) ([]dto.LectureConflictResponse, error) {
	studentIDs := make(map[string]bool)
	meetingIDs := make(map[string]bool)
	for _, c := range conflicts {
		for _, a := range c.Affected {
			studentIDs[a.StudentID] = true
			meetingIDs[a.MeetingID] = true
		}
	}

	users, err := s.repo.User.ListByIDs(ctx, keys(studentIDs))
	if err != nil {
		s.logger.Error("查询学生信息失败", zap.Error(err))
		return nil, err
	}
	userByID := make(map[string]*model.User, len(users))
	for i := range users {
		userByID[users[i].UserID] = &users[i]
	}

	clubName := make(map[string]string, len(meetingIDs))
	for id := range meetingIDs {
		m, err := s.repo.Meeting.GetByID(ctx, id)
		if err != nil {
			continue
		}
		if m.Club != nil {
			clubName[id] = m.Club.Name
		}
	}

	result := make([]dto.LectureConflictResponse, 0, len(conflicts))
	for _, c := range conflicts {
		resp := dto.LectureConflictResponse{
			ID:               c.ConflictID,
			SubjectCode:      c.SubjectCode,
			SubjectName:      c.SubjectName,
			Date:             c.Date,
			TimeSlot:         c.TimeSlot,
			MeetingIDs:       c.MeetingIDs,
			AffectedStudents: make([]dto.AffectedStudentResponse, 0, len(c.Affected)),
			AffectedCount:    c.AffectedCount,
		}
		for _, a := range c.Affected {
			st := dto.AffectedStudentResponse{
				StudentBrief: dto.StudentBrief{ID: a.StudentID},
				RecordID:     a.RecordID,
				MeetingID:    a.MeetingID,
				ClubName:     clubName[a.MeetingID],
				Status:       string(a.Status),
			}
			if u, ok := userByID[a.StudentID]; ok {
				st.StudentBrief = *toStudentBrief(u)
			}
			resp.AffectedStudents = append(resp.AffectedStudents, st)
		}
		result = append(result, resp)
	}
	return result, nil
}

// ════════════════════════════════════════════════════════════
// Resolve
// ════════════════════════════════════════════════════════════

func (s *conflictService) Resolve(ctx context.Context, conflictID, studentID, decision, resolverID string) (*dto.ResolutionResponse, error) {
	if decision != model.DecisionExcuse && decision != model.DecisionReject {
		return nil, pkgerrors.NewValidation(ReasonBadDecision)
	}

	var resp *dto.ResolutionResponse
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		rec, err := s.findRecord(ctx, tx, conflictID, studentID)
		if err != nil {
			return err
		}

		var recResp dto.AttendanceRecordResponse
		switch decision {
		case model.DecisionExcuse:
			updated, err := s.attendance.WithTx(tx).Excuse(ctx, rec.RecordID, nil, resolverID)
			if err != nil {
				return err
			}
			recResp = *updated
		case model.DecisionReject:
			if rec.Status != model.StatusAbsent {
				return fmt.Errorf("%w: %s 不可驳回豁免", ErrTransitionNotAllowed, rec.Status)
			}
			recResp = toRecordResponse(rec)
		}

		res := &model.ConflictResolution{
			ConflictID: conflictID,
			StudentID:  studentID,
			RecordID:   rec.RecordID,
			Decision:   decision,
			ResolvedBy: resolverID,
			ResolvedAt: s.clock(),
		}
		if err := tx.Resolution.Create(ctx, res); err != nil {
			return err
		}
		resp = toResolutionResponse(res)
		resp.Record = &recResp
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.ConflictResolutions.WithLabelValues(decision).Inc()
	s.logger.Info("冲突已处理",
		zap.String("conflict_id", conflictID),
		zap.String("student_id", studentID),
		zap.String("decision", decision),
		zap.String("resolved_by", resolverID),
	)
	return resp, nil
}

// findRecord 在与课程时段重叠的会议中查找学生的考勤记录，优先返回 ABSENT 记录
func (s *conflictService) findRecord(ctx context.Context, tx *repository.Repository, conflictID, studentID string) (*model.AttendanceRecord, error) {
	slot, err := tx.LectureSlot.GetByID(ctx, conflictID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConflictNotFound
		}
		return nil, err
	}

	meetings, err := tx.Meeting.ListByDateRange(ctx, slot.Date, slot.Date)
	if err != nil {
		return nil, err
	}

	var found *model.AttendanceRecord
	for _, m := range overlappingMeetings(slot, meetings) {
		rec, err := tx.Attendance.GetByMeetingAndStudent(ctx, m.MeetingID, studentID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if rec.Status == model.StatusAbsent {
			return rec, nil
		}
		if found == nil {
			found = rec
		}
	}
	if found == nil {
		return nil, ErrConflictRecordNotFound
	}
	return found, nil
}

// ════════════════════════════════════════════════════════════
// ListResolved
// ════════════════════════════════════════════════════════════

func (s *conflictService) ListResolved(ctx context.Context, conflictID string) ([]dto.ResolutionResponse, error) {
	list, err := s.repo.Resolution.ListByConflict(ctx, conflictID)
	if err != nil {
		s.logger.Error("查询冲突处理记录失败", zap.String("conflict_id", conflictID), zap.Error(err))
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].ResolvedAt.After(list[j].ResolvedAt) })

	result := make([]dto.ResolutionResponse, 0, len(list))
	for i := range list {
		resp := toResolutionResponse(&list[i])
		if rec, err := s.repo.Attendance.GetByID(ctx, list[i].RecordID); err == nil {
			r := toRecordResponse(rec)
			resp.Record = &r
		}
		result = append(result, *resp)
	}
	return result, nil
}

// ── 辅助函数 ──

func toResolutionResponse(r *model.ConflictResolution) *dto.ResolutionResponse {
	return &dto.ResolutionResponse{
		ID:         r.ResolutionID,
		ConflictID: r.ConflictID,
		StudentID:  r.StudentID,
		Decision:   r.Decision,
		ResolvedBy: r.ResolvedBy,
		ResolvedAt: r.ResolvedAt.Format(time.RFC3339),
	}
}

func keys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
