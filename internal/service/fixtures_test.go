package service

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/krrishnaik/Markly/config"
	"github.com/krrishnaik/Markly/internal/model"
	"github.com/krrishnaik/Markly/internal/repository"
	"github.com/krrishnaik/Markly/internal/repository/memory"
	"github.com/krrishnaik/Markly/pkg/jwt"
)

// ── 测试辅助 ──

const testPassword = "markly-pass"

// fakeClock 可推进的测试时钟
type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type testEnv struct {
	ctx   context.Context
	repo  *repository.Repository
	svc   *Service
	clock *fakeClock
	jwt   *jwt.Manager
}

// newTestEnv 内存存储 + 固定时钟（2026-10-20 10:00 UTC）
//
// 社团：c1 Coding Club，c2 Drama Club
// 用户：u1 学生（c1,c2，3rd Year），u2 c1 负责人，u3 教师，u4 学生（c1，2nd Year）
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{
		Auth:    config.AuthConfig{JWTSecret: "test-secret-key-for-markly", AccessTokenTTL: time.Hour},
		Meeting: config.MeetingConfig{Timezone: "UTC"},
	}
	clock := &fakeClock{now: time.Date(2026, 10, 20, 10, 0, 0, 0, time.UTC)}
	repo := memory.NewRepository()
	jwtMgr := jwt.NewManager(&cfg.Auth)

	env := &testEnv{
		ctx:   context.Background(),
		repo:  repo,
		svc:   newService(cfg, repo, jwtMgr, clock.Now, zap.NewNop()),
		clock: clock,
		jwt:   jwtMgr,
	}
	env.seed(t)
	return env
}

func (e *testEnv) seed(t *testing.T) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("生成密码哈希失败: %v", err)
	}
	c1 := "c1"

	clubs := []model.Club{
		{ClubID: "c1", Name: "Coding Club", Category: "Technical"},
		{ClubID: "c2", Name: "Drama Club", Category: "Cultural"},
	}
	for i := range clubs {
		if err := e.repo.Club.Create(e.ctx, &clubs[i]); err != nil {
			t.Fatalf("创建社团失败: %v", err)
		}
	}

	users := []model.User{
		{UserID: "u1", Name: "Aarav Shah", Email: "aarav@markly.edu", Role: model.RoleStudent,
			AdmissionNumber: "2021CS001", Branch: "CSE", Year: "3rd Year", JoinedClubIDs: model.StringArray{"c1", "c2"}},
		{UserID: "u2", Name: "Priya Iyer", Email: "priya@markly.edu", Role: model.RoleLead, ClubID: &c1},
		{UserID: "u3", Name: "Dr. Rao", Email: "rao@markly.edu", Role: model.RoleFaculty},
		{UserID: "u4", Name: "Kabir Singh", Email: "kabir@markly.edu", Role: model.RoleStudent,
			AdmissionNumber: "2022EC014", Branch: "ECE", Year: "2nd Year", JoinedClubIDs: model.StringArray{"c1"}},
	}
	for i := range users {
		users[i].PasswordHash = string(hash)
		if err := e.repo.User.Create(e.ctx, &users[i]); err != nil {
			t.Fatalf("创建用户失败: %v", err)
		}
	}
}

// meeting 直接写入一场会议（绕过创建校验，可用于过去的日期）
func (e *testEnv) meeting(t *testing.T, id, clubID, date, start, end string) *model.Meeting {
	t.Helper()
	m := &model.Meeting{
		MeetingID: id,
		ClubID:    clubID,
		Title:     "Meeting " + id,
		Date:      date,
		StartTime: start,
		EndTime:   end,
		Status:    model.MeetingScheduled,
	}
	if err := e.repo.Meeting.Create(e.ctx, m); err != nil {
		t.Fatalf("创建会议失败: %v", err)
	}
	return m
}

// record 直接写入一条指定状态的考勤记录
func (e *testEnv) record(t *testing.T, meetingID, studentID string, status model.AttendanceStatus) *model.AttendanceRecord {
	t.Helper()
	rec := &model.AttendanceRecord{MeetingID: meetingID, StudentID: studentID, Status: status}
	if status != model.StatusNotDeclared {
		at := e.clock.Now()
		rec.Timestamp = &at
	}
	if err := e.repo.Attendance.Create(e.ctx, rec); err != nil {
		t.Fatalf("创建考勤记录失败: %v", err)
	}
	return rec
}

// lecture 直接写入一个课程时段
func (e *testEnv) lecture(t *testing.T, id, code, date, start, end string) *model.LectureSlot {
	t.Helper()
	slot := &model.LectureSlot{
		LectureSlotID: id,
		SubjectCode:   code,
		SubjectName:   "Subject " + code,
		Date:          date,
		StartTime:     start,
		EndTime:       end,
		Source:        "manual",
	}
	if err := e.repo.LectureSlot.Create(e.ctx, slot); err != nil {
		t.Fatalf("创建课程时段失败: %v", err)
	}
	return slot
}

// status 读取存储中的记录状态
func (e *testEnv) status(t *testing.T, recordID string) model.AttendanceStatus {
	t.Helper()
	rec, err := e.repo.Attendance.GetByID(e.ctx, recordID)
	if err != nil {
		t.Fatalf("读取考勤记录失败: %v", err)
	}
	return rec.Status
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }
