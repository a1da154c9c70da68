// Package seed 写入演示数据（社团、各角色账号、示例会议与课表）
package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/krrishnaik/Markly/internal/model"
	"github.com/krrishnaik/Markly/internal/repository"
)

// 演示账号
const (
	StudentEmail = "student@markly.edu"
	LeadEmail    = "lead@markly.edu"
	FacultyEmail = "faculty@markly.edu"
)

// Demo 写入演示数据；社团 c1 已存在时视为已写入，直接返回
func Demo(ctx context.Context, repo *repository.Repository, password string, logger *zap.Logger) error {
	if _, err := repo.Club.GetByID(ctx, "c1"); err == nil {
		logger.Info("演示数据已存在，跳过写入")
		return nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("检查演示数据失败: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("生成密码哈希失败: %w", err)
	}

	err = repo.Transaction(ctx, func(tx *repository.Repository) error {
		for _, c := range clubs {
			if err := tx.Club.Create(ctx, &c); err != nil {
				return err
			}
		}
		for _, u := range users() {
			u.PasswordHash = string(hash)
			if err := tx.User.Create(ctx, &u); err != nil {
				return err
			}
		}
		for _, m := range meetings {
			if err := tx.Meeting.Create(ctx, &m); err != nil {
				return err
			}
		}
		for _, rec := range records() {
			if err := tx.Attendance.Create(ctx, &rec); err != nil {
				return err
			}
		}
		for _, a := range announcements {
			if err := tx.Announcement.Create(ctx, &a); err != nil {
				return err
			}
		}
		slot := lectureSlot
		return tx.LectureSlot.Create(ctx, &slot)
	})
	if err != nil {
		return fmt.Errorf("写入演示数据失败: %w", err)
	}

	logger.Info("演示数据写入完成",
		zap.Int("clubs", len(clubs)),
		zap.Int("meetings", len(meetings)),
		zap.Strings("accounts", []string{StudentEmail, LeadEmail, FacultyEmail}),
	)
	return nil
}

// ── 数据 ──

var clubs = []model.Club{
	{ClubID: "c1", Name: "Coding Club", Category: "Technical",
		Description: "Community of software developers and competitive programmers."},
	{ClubID: "c2", Name: "Robotics Team", Category: "Technical",
		Description: "Designing and building autonomous robots."},
	{ClubID: "c3", Name: "Debate Society", Category: "Cultural",
		Description: "Fostering public speaking and critical thinking."},
}

func users() []model.User {
	leadClub := "c1"
	return []model.User{
		{UserID: "u1", Name: "Alex Student", Email: StudentEmail, Role: model.RoleStudent,
			AdmissionNumber: "2024HE0064", Branch: "Computer Engineering", Year: "3rd Year",
			JoinedClubIDs: model.StringArray{"c1", "c2"}},
		{UserID: "u2", Name: "Sarah Lead", Email: LeadEmail, Role: model.RoleLead, ClubID: &leadClub,
			AdmissionNumber: "2023HE0012", Branch: "Computer Engineering", Year: "4th Year"},
		{UserID: "u3", Name: "Dr. Alan Grant", Email: FacultyEmail, Role: model.RoleFaculty,
			Branch: "Computer Engineering"},
	}
}

var meetings = []model.Meeting{
	{MeetingID: "m1", ClubID: "c1", Title: "Hackathon Prep",
		Description: "Team formation and theme discussion for the upcoming Hex-Hackathon.",
		Date:        "2026-10-25", StartTime: "14:00", EndTime: "16:00",
		Location: "Lab 304, IT Building", Status: model.MeetingCompleted, CreatedBy: "u2"},
	{MeetingID: "m2", ClubID: "c1", Title: "Intro to Generative AI",
		Description: "Guest lecture on LLM architecture and fine-tuning.",
		Date:        "2026-11-02", StartTime: "10:00", EndTime: "11:30",
		Location: "Seminar Hall A", Status: model.MeetingScheduled, CreatedBy: "u2"},
	{MeetingID: "m3", ClubID: "c2", Title: "Drone Motor Assembly",
		Description: "Hands-on workshop for calibrating BLDC motors.",
		Date:        "2026-11-05", StartTime: "15:00", EndTime: "17:00",
		Location: "Workshop Bay 2", Status: model.MeetingScheduled},
}

func records() []model.AttendanceRecord {
	declared := time.Date(2026, 10, 25, 14, 5, 0, 0, time.UTC)
	locked := time.Date(2026, 10, 25, 16, 0, 0, 0, time.UTC)
	return []model.AttendanceRecord{
		{RecordID: "a1", MeetingID: "m1", StudentID: "u1", Status: model.StatusPresent,
			Timestamp: &declared, UpdatedBy: "u2", LockedAt: &locked},
		{RecordID: "a2", MeetingID: "m2", StudentID: "u1", Status: model.StatusNotDeclared},
		{RecordID: "a3", MeetingID: "m3", StudentID: "u1", Status: model.StatusNotDeclared},
	}
}

var announcements = []model.Announcement{
	{AnnouncementID: "ann1", ClubID: "c1", Title: "Registration Open: Hex-Hackathon",
		Content:  "Registration is now live! Form teams of 4 and submit your ideas by Friday.",
		Date:     "2026-10-20", Priority: model.PriorityHigh, CreatedBy: "u2"},
	{AnnouncementID: "ann2", ClubID: "c2", Title: "Lab Maintenance Schedule",
		Content:  "The robotics lab will be closed for maintenance this Saturday.",
		Date:     "2026-10-22", Priority: model.PriorityNormal},
}

// 与 m1 重叠的课程，演示冲突检测
var lectureSlot = model.LectureSlot{
	LectureSlotID: "ls-cs302-20261025", SubjectCode: "CS302", SubjectName: "Database Management",
	Date: "2026-10-25", StartTime: "14:00", EndTime: "15:00", Year: "3rd Year", Source: "manual",
}
