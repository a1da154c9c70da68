// Package memory 提供进程内的 Repository 实现。
// 用于单元测试与 store.driver=memory 的单机演示模式，行为与 GORM 实现保持一致：
// 查不到返回 gorm.ErrRecordNotFound，唯一键冲突返回 gorm.ErrDuplicatedKey，
// 版本不一致返回 ErrOptimisticLock。
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/krrishnaik/Markly/internal/model"
	"github.com/krrishnaik/Markly/internal/repository"
	pkgerrors "github.com/krrishnaik/Markly/pkg/errors"
)

// Store 进程内数据集
type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex // 写入口：事务整体持有，事务外的单次写入逐次持有
	now  func() time.Time

	users         map[string]model.User
	clubs         map[string]model.Club
	announcements map[string]model.Announcement
	meetings      map[string]model.Meeting
	records       map[string]model.AttendanceRecord
	slots         map[string]model.LectureSlot
	resolutions   map[string]model.ConflictResolution
}

// NewStore 创建空数据集
func NewStore() *Store {
	return &Store{
		now:           time.Now,
		users:         make(map[string]model.User),
		clubs:         make(map[string]model.Club),
		announcements: make(map[string]model.Announcement),
		meetings:      make(map[string]model.Meeting),
		records:       make(map[string]model.AttendanceRecord),
		slots:         make(map[string]model.LectureSlot),
		resolutions:   make(map[string]model.ConflictResolution),
	}
}

// NewRepository 创建基于内存的 Repository 聚合
func NewRepository() *repository.Repository {
	return NewStore().Repository()
}

// Repository 返回绑定到该数据集的 Repository 聚合
func (s *Store) Repository() *repository.Repository {
	return s.repository(false)
}

func (s *Store) repository(inTx bool) *repository.Repository {
	v := &view{s: s, inTx: inTx}
	repo := &repository.Repository{
		User:         &userRepo{v},
		Club:         &clubRepo{v},
		Announcement: &announcementRepo{v},
		Meeting:      &meetingRepo{v},
		Attendance:   &attendanceRepo{v},
		LectureSlot:  &lectureSlotRepo{v},
		Resolution:   &resolutionRepo{v},
	}
	if !inTx {
		repo.RunInTx = s.runInTx
	}
	return repo
}

// view 各仓储共享的数据集句柄；inTx 表示调用方已持有 txMu
type view struct {
	s    *Store
	inTx bool
}

// lock 获取写锁并返回释放函数。
// 事务外的写入同样先取 txMu，回滚恢复快照时不会覆盖并发写入。
func (v *view) lock() func() {
	if !v.inTx {
		v.s.txMu.Lock()
	}
	v.s.mu.Lock()
	return func() {
		v.s.mu.Unlock()
		if !v.inTx {
			v.s.txMu.Unlock()
		}
	}
}

// runInTx 以快照方式实现事务：fn 出错时恢复到执行前的数据。
// 事务期间事务外的写入被阻塞，读取可见未提交数据。
func (s *Store) runInTx(_ context.Context, fn func(tx *repository.Repository) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	inner := s.repository(true) // 嵌套事务并入外层
	if err := fn(inner); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type snapshot struct {
	users         map[string]model.User
	clubs         map[string]model.Club
	announcements map[string]model.Announcement
	meetings      map[string]model.Meeting
	records       map[string]model.AttendanceRecord
	slots         map[string]model.LectureSlot
	resolutions   map[string]model.ConflictResolution
}

func (s *Store) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshot{
		users:         cloneMap(s.users),
		clubs:         cloneMap(s.clubs),
		announcements: cloneMap(s.announcements),
		meetings:      cloneMap(s.meetings),
		records:       cloneMap(s.records),
		slots:         cloneMap(s.slots),
		resolutions:   cloneMap(s.resolutions),
	}
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = snap.users
	s.clubs = snap.clubs
	s.announcements = snap.announcements
	s.meetings = snap.meetings
	s.records = snap.records
	s.slots = snap.slots
	s.resolutions = snap.resolutions
}

func cloneMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *Store) touch(b *model.BaseModel, creating bool) {
	now := s.now()
	if creating && b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
}

// ── User ──

type userRepo struct{ *view }

func (r *userRepo) Create(_ context.Context, user *model.User) error {
	defer r.lock()()
	if user.UserID == "" {
		user.UserID = uuid.NewString()
	}
	if _, ok := r.s.users[user.UserID]; ok {
		return gorm.ErrDuplicatedKey
	}
	r.s.touch(&user.BaseModel, true)
	u := *user
	u.JoinedClubIDs = append(model.StringArray(nil), user.JoinedClubIDs...)
	r.s.users[user.UserID] = u
	return nil
}

func (r *userRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *userRepo) ListByIDs(_ context.Context, ids []string) ([]model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []model.User
	for _, id := range ids {
		if u, ok := r.s.users[id]; ok {
			result = append(result, u)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UserID < result[j].UserID })
	return result, nil
}

func (r *userRepo) ListStudentsByClub(_ context.Context, clubID string) ([]model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []model.User
	for _, u := range r.s.users {
		if u.IsStudentOf(clubID) {
			result = append(result, u)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UserID < result[j].UserID })
	return result, nil
}

// ── Club / Announcement ──

type clubRepo struct{ *view }

func (r *clubRepo) Create(_ context.Context, club *model.Club) error {
	defer r.lock()()
	if club.ClubID == "" {
		club.ClubID = uuid.NewString()
	}
	if _, ok := r.s.clubs[club.ClubID]; ok {
		return gorm.ErrDuplicatedKey
	}
	r.s.touch(&club.BaseModel, true)
	r.s.clubs[club.ClubID] = *club
	return nil
}

func (r *clubRepo) GetByID(_ context.Context, id string) (*model.Club, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.clubs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &c, nil
}

func (r *clubRepo) List(_ context.Context) ([]model.Club, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	result := make([]model.Club, 0, len(r.s.clubs))
	for _, c := range r.s.clubs {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

type announcementRepo struct{ *view }

func (r *announcementRepo) Create(_ context.Context, a *model.Announcement) error {
	defer r.lock()()
	if a.AnnouncementID == "" {
		a.AnnouncementID = uuid.NewString()
	}
	r.s.touch(&a.BaseModel, true)
	stored := *a
	stored.Club = nil
	r.s.announcements[a.AnnouncementID] = stored
	return nil
}

func (r *announcementRepo) ListByClubs(_ context.Context, clubIDs []string) ([]model.Announcement, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	want := toSet(clubIDs)
	var result []model.Announcement
	for _, a := range r.s.announcements {
		if !want[a.ClubID] {
			continue
		}
		if c, ok := r.s.clubs[a.ClubID]; ok {
			a.Club = &c
		}
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Date != result[j].Date {
			return result[i].Date > result[j].Date
		}
		return result[i].AnnouncementID < result[j].AnnouncementID
	})
	return result, nil
}

// ── Meeting ──

type meetingRepo struct{ *view }

func (r *meetingRepo) Create(_ context.Context, meeting *model.Meeting) error {
	defer r.lock()()
	if meeting.MeetingID == "" {
		meeting.MeetingID = uuid.NewString()
	}
	if _, ok := r.s.meetings[meeting.MeetingID]; ok {
		return gorm.ErrDuplicatedKey
	}
	if meeting.Version == 0 {
		meeting.Version = 1
	}
	r.s.touch(&meeting.BaseModel, true)
	stored := *meeting
	stored.Club = nil
	r.s.meetings[meeting.MeetingID] = stored
	return nil
}

func (r *meetingRepo) GetByID(_ context.Context, id string) (*model.Meeting, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	m, ok := r.s.meetings[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	r.s.withClub(&m)
	return &m, nil
}

func (r *meetingRepo) Update(_ context.Context, meeting *model.Meeting) error {
	defer r.lock()()
	current, ok := r.s.meetings[meeting.MeetingID]
	if !ok || current.Version != meeting.Version {
		return pkgerrors.ErrOptimisticLock
	}
	meeting.Version++
	r.s.touch(&meeting.BaseModel, false)
	stored := *meeting
	stored.Club = nil
	r.s.meetings[meeting.MeetingID] = stored
	return nil
}

func (r *meetingRepo) ListByClubs(_ context.Context, clubIDs []string, status *string) ([]model.Meeting, error) {
	want := toSet(clubIDs)
	return r.list(func(m *model.Meeting) bool {
		return want[m.ClubID] && (status == nil || m.Status == *status)
	}), nil
}

func (r *meetingRepo) ListByDateRange(_ context.Context, from, to string) ([]model.Meeting, error) {
	return r.list(func(m *model.Meeting) bool {
		return m.Date >= from && m.Date <= to
	}), nil
}

func (r *meetingRepo) ListEndedScheduled(_ context.Context, date, clock string) ([]model.Meeting, error) {
	return r.list(func(m *model.Meeting) bool {
		return m.Status == model.MeetingScheduled && m.EndedBy(date, clock)
	}), nil
}

func (r *meetingRepo) list(keep func(m *model.Meeting) bool) []model.Meeting {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []model.Meeting
	for _, m := range r.s.meetings {
		if !keep(&m) {
			continue
		}
		r.s.withClub(&m)
		result = append(result, m)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Date != result[j].Date {
			return result[i].Date < result[j].Date
		}
		if result[i].StartTime != result[j].StartTime {
			return result[i].StartTime < result[j].StartTime
		}
		return result[i].MeetingID < result[j].MeetingID
	})
	return result
}

func (s *Store) withClub(m *model.Meeting) {
	if c, ok := s.clubs[m.ClubID]; ok {
		m.Club = &c
	}
}

// ── AttendanceRecord ──

type attendanceRepo struct{ *view }

func (r *attendanceRepo) Create(_ context.Context, rec *model.AttendanceRecord) error {
	defer r.lock()()
	for _, existing := range r.s.records {
		if existing.MeetingID == rec.MeetingID && existing.StudentID == rec.StudentID {
			return gorm.ErrDuplicatedKey
		}
	}
	if rec.RecordID == "" {
		rec.RecordID = uuid.NewString()
	}
	if _, ok := r.s.records[rec.RecordID]; ok {
		return gorm.ErrDuplicatedKey
	}
	if rec.Version == 0 {
		rec.Version = 1
	}
	r.s.touch(&rec.BaseModel, true)
	r.s.records[rec.RecordID] = bareRecord(rec)
	return nil
}

func (r *attendanceRepo) GetByID(_ context.Context, id string) (*model.AttendanceRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rec, ok := r.s.records[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &rec, nil
}

func (r *attendanceRepo) GetByMeetingAndStudent(_ context.Context, meetingID, studentID string) (*model.AttendanceRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, rec := range r.s.records {
		if rec.MeetingID == meetingID && rec.StudentID == studentID {
			return &rec, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *attendanceRepo) Update(_ context.Context, rec *model.AttendanceRecord) error {
	defer r.lock()()
	current, ok := r.s.records[rec.RecordID]
	if !ok || current.Version != rec.Version {
		return pkgerrors.ErrOptimisticLock
	}
	rec.Version++
	r.s.touch(&rec.BaseModel, false)
	r.s.records[rec.RecordID] = bareRecord(rec)
	return nil
}

func (r *attendanceRepo) ListByMeeting(_ context.Context, meetingID string) ([]model.AttendanceRecord, error) {
	result := r.list(func(rec *model.AttendanceRecord) bool { return rec.MeetingID == meetingID })
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for i := range result {
		if u, ok := r.s.users[result[i].StudentID]; ok {
			result[i].Student = &u
		}
	}
	return result, nil
}

func (r *attendanceRepo) ListByMeetings(_ context.Context, meetingIDs []string) ([]model.AttendanceRecord, error) {
	want := toSet(meetingIDs)
	return r.list(func(rec *model.AttendanceRecord) bool { return want[rec.MeetingID] }), nil
}

func (r *attendanceRepo) ListByStudent(_ context.Context, studentID string) ([]model.AttendanceRecord, error) {
	result := r.list(func(rec *model.AttendanceRecord) bool { return rec.StudentID == studentID })
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for i := range result {
		if m, ok := r.s.meetings[result[i].MeetingID]; ok {
			r.s.withClub(&m)
			result[i].Meeting = &m
		}
	}
	return result, nil
}

func (r *attendanceRepo) LockByMeeting(_ context.Context, meetingID string, at time.Time) (int64, error) {
	defer r.lock()()
	var n int64
	for id, rec := range r.s.records {
		if rec.MeetingID != meetingID || rec.LockedAt != nil {
			continue
		}
		t := at
		rec.LockedAt = &t
		rec.Version++
		r.s.touch(&rec.BaseModel, false)
		r.s.records[id] = rec
		n++
	}
	return n, nil
}

func (r *attendanceRepo) list(keep func(rec *model.AttendanceRecord) bool) []model.AttendanceRecord {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []model.AttendanceRecord
	for _, rec := range r.s.records {
		if keep(&rec) {
			result = append(result, rec)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].MeetingID != result[j].MeetingID {
			return result[i].MeetingID < result[j].MeetingID
		}
		return result[i].StudentID < result[j].StudentID
	})
	return result
}

// bareRecord 去掉关联字段后入库，避免共享指针
func bareRecord(rec *model.AttendanceRecord) model.AttendanceRecord {
	stored := *rec
	stored.Meeting = nil
	stored.Student = nil
	if rec.Timestamp != nil {
		t := *rec.Timestamp
		stored.Timestamp = &t
	}
	if rec.LockedAt != nil {
		t := *rec.LockedAt
		stored.LockedAt = &t
	}
	return stored
}

// ── LectureSlot ──

type lectureSlotRepo struct{ *view }

func (r *lectureSlotRepo) Create(_ context.Context, slot *model.LectureSlot) error {
	defer r.lock()()
	return r.insert(slot)
}

func (r *lectureSlotRepo) BatchCreate(_ context.Context, slots []model.LectureSlot) error {
	defer r.lock()()
	for i := range slots {
		if slots[i].LectureSlotID != "" {
			if _, ok := r.s.slots[slots[i].LectureSlotID]; ok {
				return gorm.ErrDuplicatedKey
			}
		}
	}
	for i := range slots {
		if err := r.insert(&slots[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *lectureSlotRepo) insert(slot *model.LectureSlot) error {
	if slot.LectureSlotID == "" {
		slot.LectureSlotID = uuid.NewString()
	}
	if _, ok := r.s.slots[slot.LectureSlotID]; ok {
		return gorm.ErrDuplicatedKey
	}
	r.s.touch(&slot.BaseModel, true)
	r.s.slots[slot.LectureSlotID] = *slot
	return nil
}

func (r *lectureSlotRepo) GetByID(_ context.Context, id string) (*model.LectureSlot, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	slot, ok := r.s.slots[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &slot, nil
}

func (r *lectureSlotRepo) ListByDateRange(_ context.Context, from, to string) ([]model.LectureSlot, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []model.LectureSlot
	for _, slot := range r.s.slots {
		if slot.Date >= from && slot.Date <= to {
			result = append(result, slot)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		if a.SubjectCode != b.SubjectCode {
			return a.SubjectCode < b.SubjectCode
		}
		return a.LectureSlotID < b.LectureSlotID
	})
	return result, nil
}

// ── ConflictResolution ──

type resolutionRepo struct{ *view }

func (r *resolutionRepo) Create(_ context.Context, res *model.ConflictResolution) error {
	defer r.lock()()
	if res.ResolutionID == "" {
		res.ResolutionID = uuid.NewString()
	}
	r.s.resolutions[res.ResolutionID] = *res
	return nil
}

func (r *resolutionRepo) ListByConflict(_ context.Context, conflictID string) ([]model.ConflictResolution, error) {
	return r.list(func(res *model.ConflictResolution) bool { return res.ConflictID == conflictID }), nil
}

func (r *resolutionRepo) ListByStudent(_ context.Context, studentID string) ([]model.ConflictResolution, error) {
	return r.list(func(res *model.ConflictResolution) bool { return res.StudentID == studentID }), nil
}

func (r *resolutionRepo) list(keep func(res *model.ConflictResolution) bool) []model.ConflictResolution {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []model.ConflictResolution
	for _, res := range r.s.resolutions {
		if keep(&res) {
			result = append(result, res)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].ResolvedAt.Equal(result[j].ResolvedAt) {
			return result[i].ResolvedAt.After(result[j].ResolvedAt)
		}
		return result[i].ResolutionID < result[j].ResolutionID
	})
	return result
}

// ── 辅助函数 ──

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
