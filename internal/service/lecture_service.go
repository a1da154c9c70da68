package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/krrishnaik/Markly/internal/dto"
	"github.com/krrishnaik/Markly/internal/model"
	"github.com/krrishnaik/Markly/internal/repository"
	pkgerrors "github.com/krrishnaik/Markly/pkg/errors"
)

// ── 课程时段模块业务错误 ──

var (
	ErrICSEmpty = pkgerrors.NewValidation("calendar contains no lecture events")
	ErrICSParse = errors.New("课表文件解析失败")
)

// LectureService 课程时段（冲突检测的参考数据）维护
type LectureService interface {
	Create(ctx context.Context, req *dto.CreateLectureSlotRequest) (*dto.LectureSlotResponse, error)
	// ImportICS 解析 ICS 并批量写入，整体成功或整体失败
	ImportICS(ctx context.Context, r io.Reader, branch, year string) (*dto.ImportICSResponse, error)
	// ImportICSFromURL 下载并导入 ICS（支持 webcal://）
	ImportICSFromURL(ctx context.Context, url, branch, year string) (*dto.ImportICSResponse, error)
	ListByDateRange(ctx context.Context, from, to string) ([]dto.LectureSlotResponse, error)
}

type lectureService struct {
	repo   *repository.Repository
	loc    *time.Location
	logger *zap.Logger
}

// NewLectureService 创建 LectureService 实例
func NewLectureService(repo *repository.Repository, loc *time.Location, logger *zap.Logger) LectureService {
	if loc == nil {
		loc = time.UTC
	}
	return &lectureService{repo: repo, loc: loc, logger: logger}
}

func (s *lectureService) Create(ctx context.Context, req *dto.CreateLectureSlotRequest) (*dto.LectureSlotResponse, error) {
	if !model.ValidDate(req.Date) {
		return nil, pkgerrors.NewValidation(ReasonBadDate)
	}
	if !model.ValidClock(req.StartTime) || !model.ValidClock(req.EndTime) {
		return nil, pkgerrors.NewValidation(ReasonBadTime)
	}
	if req.StartTime >= req.EndTime {
		return nil, pkgerrors.NewValidation(ReasonEndBeforeStart)
	}

	slot := &model.LectureSlot{
		SubjectCode: strings.ToUpper(strings.TrimSpace(req.SubjectCode)),
		SubjectName: strings.TrimSpace(req.SubjectName),
		Date:        req.Date,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Branch:      req.Branch,
		Year:        req.Year,
		Source:      "manual",
	}
	if err := s.repo.LectureSlot.Create(ctx, slot); err != nil {
		s.logger.Error("创建课程时段失败", zap.Error(err))
		return nil, err
	}
	resp := toLectureSlotResponse(slot)
	return &resp, nil
}

func (s *lectureService) ImportICS(ctx context.Context, r io.Reader, branch, year string) (*dto.ImportICSResponse, error) {
	slots, err := ParseLectureICS(r, s.loc, branch, year)
	if err != nil {
		s.logger.Warn("ICS 解析失败", zap.Error(err))
		return nil, errors.Join(ErrICSParse, err)
	}
	if len(slots) == 0 {
		return nil, ErrICSEmpty
	}

	if err := s.repo.LectureSlot.BatchCreate(ctx, slots); err != nil {
		s.logger.Error("批量写入课程时段失败", zap.Int("count", len(slots)), zap.Error(err))
		return nil, err
	}

	resp := &dto.ImportICSResponse{
		Imported: len(slots),
		Slots:    make([]dto.LectureSlotResponse, 0, len(slots)),
	}
	for i := range slots {
		resp.Slots = append(resp.Slots, toLectureSlotResponse(&slots[i]))
	}
	s.logger.Info("课表导入完成", zap.Int("imported", len(slots)), zap.String("branch", branch), zap.String("year", year))
	return resp, nil
}

func (s *lectureService) ImportICSFromURL(ctx context.Context, url, branch, year string) (*dto.ImportICSResponse, error) {
	body, err := FetchICSContent(ctx, url)
	if err != nil {
		s.logger.Warn("下载 ICS 失败", zap.String("url", url), zap.Error(err))
		return nil, errors.Join(ErrICSParse, err)
	}
	defer body.Close()
	return s.ImportICS(ctx, body, branch, year)
}

func (s *lectureService) ListByDateRange(ctx context.Context, from, to string) ([]dto.LectureSlotResponse, error) {
	if !model.ValidDate(from) || !model.ValidDate(to) {
		return nil, pkgerrors.NewValidation(ReasonBadDate)
	}
	if from > to {
		return nil, pkgerrors.NewValidation(ReasonBadRange)
	}
	slots, err := s.repo.LectureSlot.ListByDateRange(ctx, from, to)
	if err != nil {
		s.logger.Error("查询课程时段失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.LectureSlotResponse, 0, len(slots))
	for i := range slots {
		result = append(result, toLectureSlotResponse(&slots[i]))
	}
	return result, nil
}
