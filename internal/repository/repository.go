package repository

import (
	"context"

	"gorm.io/gorm"
)

// TxFunc 在同一事务内执行 fn，fn 返回错误时整体回滚
type TxFunc func(ctx context.Context, fn func(tx *Repository) error) error

// Repository 所有 Repository 的聚合入口
type Repository struct {
	User         UserRepository
	Club         ClubRepository
	Announcement AnnouncementRepository
	Meeting      MeetingRepository
	Attendance   AttendanceRepository
	LectureSlot  LectureSlotRepository
	Resolution   ConflictResolutionRepository

	// RunInTx 由具体存储实现注入；为空时直接在当前仓储上执行
	RunInTx TxFunc
}

// NewRepository 创建基于 GORM 的 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	repo := newGormRepository(db)
	repo.RunInTx = func(ctx context.Context, fn func(tx *Repository) error) error {
		return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(newGormRepository(tx))
		})
	}
	return repo
}

func newGormRepository(db *gorm.DB) *Repository {
	return &Repository{
		User:         NewUserRepo(db),
		Club:         NewClubRepo(db),
		Announcement: NewAnnouncementRepo(db),
		Meeting:      NewMeetingRepo(db),
		Attendance:   NewAttendanceRepo(db),
		LectureSlot:  NewLectureSlotRepo(db),
		Resolution:   NewConflictResolutionRepo(db),
	}
}

// Transaction 在事务中执行 fn
func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	if r.RunInTx == nil {
		return fn(r)
	}
	return r.RunInTx(ctx, fn)
}
