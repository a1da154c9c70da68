package service

import (
	"errors"
	"testing"

	"github.com/krrishnaik/Markly/internal/dto"
	"github.com/krrishnaik/Markly/internal/model"
	pkgerrors "github.com/krrishnaik/Markly/pkg/errors"
)

func validMeetingRequest() *dto.CreateMeetingRequest {
	return &dto.CreateMeetingRequest{
		ClubID:    "c1",
		Title:     "Weekly Sync",
		Date:      "2026-10-25",
		StartTime: "16:00",
		EndTime:   "18:00",
		Location:  "Lab 3",
	}
}

// ── Create ──

func TestMeetingService_Create_Success(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.svc.Meeting.Create(env.ctx, validMeetingRequest(), "u2")
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	if resp.Status != model.MeetingScheduled {
		t.Errorf("新会议状态应为 SCHEDULED，实际 %s", resp.Status)
	}
	if resp.ID == "" || resp.Club == nil || resp.Club.Name != "Coding Club" {
		t.Errorf("响应缺少 ID 或社团信息: %+v", resp)
	}
}

func TestMeetingService_Create_Today(t *testing.T) {
	env := newTestEnv(t)
	req := validMeetingRequest()
	req.Date = "2026-10-20"

	if _, err := env.svc.Meeting.Create(env.ctx, req, "u2"); err != nil {
		t.Errorf("当天的会议应允许创建: %v", err)
	}
}

func TestMeetingService_Create_Validation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		mutate func(r *dto.CreateMeetingRequest)
		reason string
	}{
		{"结束早于开始", func(r *dto.CreateMeetingRequest) { r.StartTime, r.EndTime = "18:00", "16:00" }, ReasonEndBeforeStart},
		{"开始等于结束", func(r *dto.CreateMeetingRequest) { r.EndTime = r.StartTime }, ReasonEndBeforeStart},
		{"过去的日期", func(r *dto.CreateMeetingRequest) { r.Date = "2026-10-19" }, ReasonPastDate},
		{"日期格式错误", func(r *dto.CreateMeetingRequest) { r.Date = "25/10/2026" }, ReasonBadDate},
		{"时间格式错误", func(r *dto.CreateMeetingRequest) { r.StartTime = "4pm" }, ReasonBadTime},
		{"标题为空", func(r *dto.CreateMeetingRequest) { r.Title = "  " }, ReasonTitleRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validMeetingRequest()
			tt.mutate(req)

			_, err := env.svc.Meeting.Create(env.ctx, req, "u2")
			reason, ok := pkgerrors.IsValidation(err)
			if !ok {
				t.Fatalf("期望 ValidationError，实际: %v", err)
			}
			if reason != tt.reason {
				t.Errorf("期望原因 %q，实际 %q", tt.reason, reason)
			}
		})
	}

	all, _ := env.repo.Meeting.ListByClubs(env.ctx, []string{"c1"}, nil)
	if len(all) != 0 {
		t.Errorf("校验失败不应写入会议，实际 %d 场", len(all))
	}
}

func TestMeetingService_Create_UnknownClub(t *testing.T) {
	env := newTestEnv(t)
	req := validMeetingRequest()
	req.ClubID = "missing"

	if _, err := env.svc.Meeting.Create(env.ctx, req, "u2"); !errors.Is(err, ErrClubNotFound) {
		t.Errorf("期望 ErrClubNotFound，实际: %v", err)
	}
}

// ── 查询 ──

func TestMeetingService_ListUpcoming(t *testing.T) {
	env := newTestEnv(t)
	env.meeting(t, "late", "c1", "2026-10-28", "09:00", "10:00")
	env.meeting(t, "soon-pm", "c2", "2026-10-21", "16:00", "17:00")
	env.meeting(t, "soon-am", "c1", "2026-10-21", "09:00", "10:00")
	env.meeting(t, "past", "c1", "2026-10-10", "09:00", "10:00")
	done := env.meeting(t, "done", "c1", "2026-10-22", "09:00", "10:00")
	done.Status = model.MeetingCompleted
	if err := env.repo.Meeting.Update(env.ctx, done); err != nil {
		t.Fatalf("更新会议失败: %v", err)
	}

	list, err := env.svc.Meeting.ListUpcoming(env.ctx, []string{"c1", "c2"})
	if err != nil {
		t.Fatalf("ListUpcoming 失败: %v", err)
	}
	want := []string{"soon-am", "soon-pm", "late"}
	if len(list) != len(want) {
		t.Fatalf("期望 %v，实际 %d 场", want, len(list))
	}
	for i, id := range want {
		if list[i].ID != id {
			t.Errorf("第 %d 场期望 %s，实际 %s", i, id, list[i].ID)
		}
	}
}

func TestMeetingService_ListPast(t *testing.T) {
	env := newTestEnv(t)
	env.meeting(t, "older", "c1", "2026-10-01", "09:00", "10:00")
	env.meeting(t, "newer", "c1", "2026-10-15", "09:00", "10:00")
	env.meeting(t, "future", "c1", "2026-10-25", "09:00", "10:00")
	env.meeting(t, "other-club", "c2", "2026-10-16", "09:00", "10:00")
	env.meeting(t, "finished", "c1", "2026-10-20", "08:00", "09:00")
	if _, err := env.svc.Meeting.Complete(env.ctx, "finished"); err != nil {
		t.Fatalf("Complete 失败: %v", err)
	}

	list, err := env.svc.Meeting.ListPast(env.ctx, "c1")
	if err != nil {
		t.Fatalf("ListPast 失败: %v", err)
	}
	want := []string{"finished", "newer", "older"}
	if len(list) != len(want) {
		t.Fatalf("期望 %v，实际 %d 场", want, len(list))
	}
	for i, id := range want {
		if list[i].ID != id {
			t.Errorf("第 %d 场期望 %s，实际 %s", i, id, list[i].ID)
		}
	}
}

func TestMeetingService_ListByClub_StatusFilter(t *testing.T) {
	env := newTestEnv(t)
	env.meeting(t, "a", "c1", "2026-10-21", "09:00", "10:00")
	env.meeting(t, "b", "c1", "2026-10-22", "09:00", "10:00")
	if _, err := env.svc.Meeting.Complete(env.ctx, "b"); err != nil {
		t.Fatalf("Complete 失败: %v", err)
	}

	all, _ := env.svc.Meeting.ListByClub(env.ctx, "c1", nil)
	if len(all) != 2 {
		t.Errorf("不过滤时期望 2 场，实际 %d", len(all))
	}
	completed, _ := env.svc.Meeting.ListByClub(env.ctx, "c1", strPtr(model.MeetingCompleted))
	if len(completed) != 1 || completed[0].ID != "b" {
		t.Errorf("按 COMPLETED 过滤期望仅 b，实际 %+v", completed)
	}
}

// ── Complete ──

func TestMeetingService_Complete_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	env.meeting(t, "m1", "c1", "2026-10-21", "09:00", "10:00")

	first, err := env.svc.Meeting.Complete(env.ctx, "m1")
	if err != nil {
		t.Fatalf("Complete 失败: %v", err)
	}
	second, err := env.svc.Meeting.Complete(env.ctx, "m1")
	if err != nil {
		t.Fatalf("重复 Complete 应成功: %v", err)
	}
	if first.Status != model.MeetingCompleted || second.Version != first.Version {
		t.Errorf("重复结束不应修改会议: %+v → %+v", first, second)
	}
}

func TestMeetingService_Complete_UnknownMeeting(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.svc.Meeting.Complete(env.ctx, "missing"); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Errorf("期望 ErrNotFound，实际: %v", err)
	}
}
