package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/krrishnaik/Markly/internal/model"
)

// ClubRepository 社团数据访问接口
type ClubRepository interface {
	Create(ctx context.Context, club *model.Club) error
	GetByID(ctx context.Context, id string) (*model.Club, error)
	List(ctx context.Context) ([]model.Club, error)
}

type clubRepo struct {
	db *gorm.DB
}

// NewClubRepo 创建 ClubRepository 实例
func NewClubRepo(db *gorm.DB) ClubRepository {
	return &clubRepo{db: db}
}

func (r *clubRepo) Create(ctx context.Context, club *model.Club) error {
	if club.ClubID == "" {
		club.ClubID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Create(club).Error
}

func (r *clubRepo) GetByID(ctx context.Context, id string) (*model.Club, error) {
	var club model.Club
	if err := r.db.WithContext(ctx).Where("club_id = ?", id).First(&club).Error; err != nil {
		return nil, err
	}
	return &club, nil
}

func (r *clubRepo) List(ctx context.Context) ([]model.Club, error) {
	var clubs []model.Club
	err := r.db.WithContext(ctx).Order("name ASC").Find(&clubs).Error
	return clubs, err
}

// AnnouncementRepository 社团公告数据访问接口
type AnnouncementRepository interface {
	Create(ctx context.Context, a *model.Announcement) error
	ListByClubs(ctx context.Context, clubIDs []string) ([]model.Announcement, error)
}

type announcementRepo struct {
	db *gorm.DB
}

// NewAnnouncementRepo 创建 AnnouncementRepository 实例
func NewAnnouncementRepo(db *gorm.DB) AnnouncementRepository {
	return &announcementRepo{db: db}
}

func (r *announcementRepo) Create(ctx context.Context, a *model.Announcement) error {
	if a.AnnouncementID == "" {
		a.AnnouncementID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *announcementRepo) ListByClubs(ctx context.Context, clubIDs []string) ([]model.Announcement, error) {
	var list []model.Announcement
	if len(clubIDs) == 0 {
		return list, nil
	}
	err := r.db.WithContext(ctx).
		Preload("Club").
		Where("club_id IN ?", clubIDs).
		Order("date DESC, announcement_id ASC").
		Find(&list).Error
	return list, err
}
