package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/krrishnaik/Markly/internal/model"
	pkgerrors "github.com/krrishnaik/Markly/pkg/errors"
)

// AttendanceRepository 考勤记录数据访问接口
type AttendanceRepository interface {
	// Create 新建记录；(meeting_id, student_id) 重复时返回 gorm.ErrDuplicatedKey
	Create(ctx context.Context, rec *model.AttendanceRecord) error
	GetByID(ctx context.Context, id string) (*model.AttendanceRecord, error)
	GetByMeetingAndStudent(ctx context.Context, meetingID, studentID string) (*model.AttendanceRecord, error)
	// Update 基于 version 的乐观锁更新，版本不一致返回 ErrOptimisticLock
	Update(ctx context.Context, rec *model.AttendanceRecord) error
	ListByMeeting(ctx context.Context, meetingID string) ([]model.AttendanceRecord, error)
	ListByMeetings(ctx context.Context, meetingIDs []string) ([]model.AttendanceRecord, error)
	ListByStudent(ctx context.Context, studentID string) ([]model.AttendanceRecord, error)
	// LockByMeeting 锁定会议下所有未锁定记录，返回受影响条数
	LockByMeeting(ctx context.Context, meetingID string, at time.Time) (int64, error)
}

type attendanceRepo struct {
	db *gorm.DB
}

// NewAttendanceRepo 创建 AttendanceRepository 实例
func NewAttendanceRepo(db *gorm.DB) AttendanceRepository {
	return &attendanceRepo{db: db}
}

func (r *attendanceRepo) Create(ctx context.Context, rec *model.AttendanceRecord) error {
	if rec.RecordID == "" {
		rec.RecordID = uuid.NewString()
	}
	if rec.Version == 0 {
		rec.Version = 1
	}
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *attendanceRepo) GetByID(ctx context.Context, id string) (*model.AttendanceRecord, error) {
	var rec model.AttendanceRecord
	err := r.db.WithContext(ctx).
		Where("record_id = ?", id).
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *attendanceRepo) GetByMeetingAndStudent(ctx context.Context, meetingID, studentID string) (*model.AttendanceRecord, error) {
	var rec model.AttendanceRecord
	err := r.db.WithContext(ctx).
		Where("meeting_id = ? AND student_id = ?", meetingID, studentID).
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *attendanceRepo) Update(ctx context.Context, rec *model.AttendanceRecord) error {
	oldVersion := rec.Version
	result := r.db.WithContext(ctx).
		Model(&model.AttendanceRecord{}).
		Where("record_id = ? AND version = ?", rec.RecordID, oldVersion).
		Updates(map[string]interface{}{
			"status":     rec.Status,
			"timestamp":  rec.Timestamp,
			"updated_by": rec.UpdatedBy,
			"locked_at":  rec.LockedAt,
			"version":    oldVersion + 1,
			"updated_at": gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	rec.Version = oldVersion + 1
	return nil
}

func (r *attendanceRepo) ListByMeeting(ctx context.Context, meetingID string) ([]model.AttendanceRecord, error) {
	var recs []model.AttendanceRecord
	err := r.db.WithContext(ctx).
		Preload("Student").
		Where("meeting_id = ?", meetingID).
		Order("student_id ASC").
		Find(&recs).Error
	return recs, err
}

func (r *attendanceRepo) ListByMeetings(ctx context.Context, meetingIDs []string) ([]model.AttendanceRecord, error) {
	var recs []model.AttendanceRecord
	if len(meetingIDs) == 0 {
		return recs, nil
	}
	err := r.db.WithContext(ctx).
		Where("meeting_id IN ?", meetingIDs).
		Order("meeting_id ASC, student_id ASC").
		Find(&recs).Error
	return recs, err
}

func (r *attendanceRepo) ListByStudent(ctx context.Context, studentID string) ([]model.AttendanceRecord, error) {
	var recs []model.AttendanceRecord
	err := r.db.WithContext(ctx).
		Preload("Meeting").
		Preload("Meeting.Club").
		Where("student_id = ?", studentID).
		Find(&recs).Error
	return recs, err
}

func (r *attendanceRepo) LockByMeeting(ctx context.Context, meetingID string, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.AttendanceRecord{}).
		Where("meeting_id = ? AND locked_at IS NULL", meetingID).
		Updates(map[string]interface{}{
			"locked_at":  at,
			"version":    gorm.Expr("version + 1"),
			"updated_at": gorm.Expr("NOW()"),
		})
	return result.RowsAffected, result.Error
}
