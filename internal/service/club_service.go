package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/krrishnaik/Markly/internal/dto"
	"github.com/krrishnaik/Markly/internal/model"
	"github.com/krrishnaik/Markly/internal/repository"
)

// ClubService 社团目录（静态参考数据）
type ClubService interface {
	List(ctx context.Context) ([]dto.ClubResponse, error)
	Get(ctx context.Context, clubID string) (*dto.ClubResponse, error)
}

type clubService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewClubService 创建 ClubService 实例
func NewClubService(repo *repository.Repository, logger *zap.Logger) ClubService {
	return &clubService{repo: repo, logger: logger}
}

func (s *clubService) List(ctx context.Context) ([]dto.ClubResponse, error) {
	clubs, err := s.repo.Club.List(ctx)
	if err != nil {
		s.logger.Error("查询社团列表失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.ClubResponse, 0, len(clubs))
	for i := range clubs {
		result = append(result, toClubResponse(&clubs[i]))
	}
	return result, nil
}

func (s *clubService) Get(ctx context.Context, clubID string) (*dto.ClubResponse, error) {
	club, err := s.repo.Club.GetByID(ctx, clubID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClubNotFound
		}
		s.logger.Error("查询社团失败", zap.String("club_id", clubID), zap.Error(err))
		return nil, err
	}
	resp := toClubResponse(club)
	return &resp, nil
}

// ── 公告 ──

// AnnouncementService 社团公告
type AnnouncementService interface {
	// Create 负责人为本社团发布公告，日期取当天
	Create(ctx context.Context, clubID string, req *dto.CreateAnnouncementRequest, callerID string) (*dto.AnnouncementResponse, error)
	// ListForClubs 指定社团的公告，按日期倒序
	ListForClubs(ctx context.Context, clubIDs []string) ([]dto.AnnouncementResponse, error)
}

type announcementService struct {
	repo   *repository.Repository
	loc    *time.Location
	clock  Clock
	logger *zap.Logger
}

// NewAnnouncementService 创建 AnnouncementService 实例
func NewAnnouncementService(repo *repository.Repository, loc *time.Location, clock Clock, logger *zap.Logger) AnnouncementService {
	if loc == nil {
		loc = time.UTC
	}
	if clock == nil {
		clock = time.Now
	}
	return &announcementService{repo: repo, loc: loc, clock: clock, logger: logger}
}

func (s *announcementService) Create(ctx context.Context, clubID string, req *dto.CreateAnnouncementRequest, callerID string) (*dto.AnnouncementResponse, error) {
	club, err := s.repo.Club.GetByID(ctx, clubID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClubNotFound
		}
		s.logger.Error("查询社团失败", zap.String("club_id", clubID), zap.Error(err))
		return nil, err
	}

	priority := req.Priority
	if priority == "" {
		priority = model.PriorityNormal
	}
	date, _ := today(s.clock, s.loc)

	a := &model.Announcement{
		ClubID:    clubID,
		Title:     strings.TrimSpace(req.Title),
		Content:   req.Content,
		Date:      date,
		Priority:  priority,
		CreatedBy: callerID,
	}
	if err := s.repo.Announcement.Create(ctx, a); err != nil {
		s.logger.Error("发布公告失败", zap.Error(err))
		return nil, err
	}
	a.Club = club
	resp := toAnnouncementResponse(a)
	return &resp, nil
}

func (s *announcementService) ListForClubs(ctx context.Context, clubIDs []string) ([]dto.AnnouncementResponse, error) {
	if len(clubIDs) == 0 {
		return []dto.AnnouncementResponse{}, nil
	}
	list, err := s.repo.Announcement.ListByClubs(ctx, clubIDs)
	if err != nil {
		s.logger.Error("查询公告失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.AnnouncementResponse, 0, len(list))
	for i := range list {
		result = append(result, toAnnouncementResponse(&list[i]))
	}
	return result, nil
}

func toAnnouncementResponse(a *model.Announcement) dto.AnnouncementResponse {
	return dto.AnnouncementResponse{
		ID:       a.AnnouncementID,
		Club:     toClubBrief(a.Club),
		Title:    a.Title,
		Content:  a.Content,
		Date:     a.Date,
		Priority: a.Priority,
	}
}
