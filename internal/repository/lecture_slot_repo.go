package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/krrishnaik/Markly/internal/model"
)

// LectureSlotRepository 课程时段数据访问接口
type LectureSlotRepository interface {
	Create(ctx context.Context, slot *model.LectureSlot) error
	// BatchCreate 批量写入（ICS 导入），整体成功或整体失败
	BatchCreate(ctx context.Context, slots []model.LectureSlot) error
	GetByID(ctx context.Context, id string) (*model.LectureSlot, error)
	ListByDateRange(ctx context.Context, from, to string) ([]model.LectureSlot, error)
}

type lectureSlotRepo struct {
	db *gorm.DB
}

// NewLectureSlotRepo 创建 LectureSlotRepository 实例
func NewLectureSlotRepo(db *gorm.DB) LectureSlotRepository {
	return &lectureSlotRepo{db: db}
}

func (r *lectureSlotRepo) Create(ctx context.Context, slot *model.LectureSlot) error {
	if slot.LectureSlotID == "" {
		slot.LectureSlotID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Create(slot).Error
}

func (r *lectureSlotRepo) BatchCreate(ctx context.Context, slots []model.LectureSlot) error {
	if len(slots) == 0 {
		return nil
	}
	for i := range slots {
		if slots[i].LectureSlotID == "" {
			slots[i].LectureSlotID = uuid.NewString()
		}
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&slots, 200).Error
	})
}

func (r *lectureSlotRepo) GetByID(ctx context.Context, id string) (*model.LectureSlot, error) {
	var slot model.LectureSlot
	if err := r.db.WithContext(ctx).Where("lecture_slot_id = ?", id).First(&slot).Error; err != nil {
		return nil, err
	}
	return &slot, nil
}

func (r *lectureSlotRepo) ListByDateRange(ctx context.Context, from, to string) ([]model.LectureSlot, error) {
	var slots []model.LectureSlot
	err := r.db.WithContext(ctx).
		Where("date >= ? AND date <= ?", from, to).
		Order("date ASC, start_time ASC, subject_code ASC").
		Find(&slots).Error
	return slots, err
}

// ConflictResolutionRepository 冲突处理记录数据访问接口
type ConflictResolutionRepository interface {
	Create(ctx context.Context, res *model.ConflictResolution) error
	ListByConflict(ctx context.Context, conflictID string) ([]model.ConflictResolution, error)
	ListByStudent(ctx context.Context, studentID string) ([]model.ConflictResolution, error)
}

type conflictResolutionRepo struct {
	db *gorm.DB
}

// NewConflictResolutionRepo 创建 ConflictResolutionRepository 实例
func NewConflictResolutionRepo(db *gorm.DB) ConflictResolutionRepository {
	return &conflictResolutionRepo{db: db}
}

func (r *conflictResolutionRepo) Create(ctx context.Context, res *model.ConflictResolution) error {
	if res.ResolutionID == "" {
		res.ResolutionID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Create(res).Error
}

func (r *conflictResolutionRepo) ListByConflict(ctx context.Context, conflictID string) ([]model.ConflictResolution, error) {
	var list []model.ConflictResolution
	err := r.db.WithContext(ctx).
		Where("conflict_id = ?", conflictID).
		Order("resolved_at DESC").
		Find(&list).Error
	return list, err
}

func (r *conflictResolutionRepo) ListByStudent(ctx context.Context, studentID string) ([]model.ConflictResolution, error) {
	var list []model.ConflictResolution
	err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("resolved_at DESC").
		Find(&list).Error
	return list, err
}
