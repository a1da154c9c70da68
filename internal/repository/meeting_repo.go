package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/krrishnaik/Markly/internal/model"
	pkgerrors "github.com/krrishnaik/Markly/pkg/errors"
)

// MeetingRepository 会议数据访问接口
type MeetingRepository interface {
	Create(ctx context.Context, meeting *model.Meeting) error
	GetByID(ctx context.Context, id string) (*model.Meeting, error)
	// Update 基于 version 的乐观锁更新，版本不一致返回 ErrOptimisticLock
	Update(ctx context.Context, meeting *model.Meeting) error
	ListByClubs(ctx context.Context, clubIDs []string, status *string) ([]model.Meeting, error)
	ListByDateRange(ctx context.Context, from, to string) ([]model.Meeting, error)
	// ListEndedScheduled 列出在 (date, clock) 之前已结束但仍为 SCHEDULED 的会议
	ListEndedScheduled(ctx context.Context, date, clock string) ([]model.Meeting, error)
}

type meetingRepo struct {
	db *gorm.DB
}

// NewMeetingRepo 创建 MeetingRepository 实例
func NewMeetingRepo(db *gorm.DB) MeetingRepository {
	return &meetingRepo{db: db}
}

func (r *meetingRepo) Create(ctx context.Context, meeting *model.Meeting) error {
	if meeting.MeetingID == "" {
		meeting.MeetingID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Create(meeting).Error
}

func (r *meetingRepo) GetByID(ctx context.Context, id string) (*model.Meeting, error) {
	var meeting model.Meeting
	err := r.db.WithContext(ctx).
		Preload("Club").
		Where("meeting_id = ?", id).
		First(&meeting).Error
	if err != nil {
		return nil, err
	}
	return &meeting, nil
}

func (r *meetingRepo) Update(ctx context.Context, meeting *model.Meeting) error {
	oldVersion := meeting.Version
	result := r.db.WithContext(ctx).
		Model(&model.Meeting{}).
		Where("meeting_id = ? AND version = ?", meeting.MeetingID, oldVersion).
		Updates(map[string]interface{}{
			"title":       meeting.Title,
			"description": meeting.Description,
			"date":        meeting.Date,
			"start_time":  meeting.StartTime,
			"end_time":    meeting.EndTime,
			"location":    meeting.Location,
			"status":      meeting.Status,
			"version":     oldVersion + 1,
			"updated_at":  gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	meeting.Version = oldVersion + 1
	return nil
}

func (r *meetingRepo) ListByClubs(ctx context.Context, clubIDs []string, status *string) ([]model.Meeting, error) {
	var meetings []model.Meeting
	if len(clubIDs) == 0 {
		return meetings, nil
	}
	db := r.db.WithContext(ctx).Where("club_id IN ?", clubIDs)
	if status != nil {
		db = db.Where("status = ?", *status)
	}
	err := db.Preload("Club").
		Order("date ASC, start_time ASC").
		Find(&meetings).Error
	return meetings, err
}

func (r *meetingRepo) ListByDateRange(ctx context.Context, from, to string) ([]model.Meeting, error) {
	var meetings []model.Meeting
	err := r.db.WithContext(ctx).
		Preload("Club").
		Where("date >= ? AND date <= ?", from, to).
		Order("date ASC, start_time ASC").
		Find(&meetings).Error
	return meetings, err
}

func (r *meetingRepo) ListEndedScheduled(ctx context.Context, date, clock string) ([]model.Meeting, error) {
	var meetings []model.Meeting
	err := r.db.WithContext(ctx).
		Where("status = ?", model.MeetingScheduled).
		Where("(date < ? OR (date = ? AND end_time <= ?))", date, date, clock).
		Order("date ASC, start_time ASC").
		Find(&meetings).Error
	return meetings, err
}
