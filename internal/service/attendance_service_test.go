package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/krrishnaik/Markly/internal/model"
	pkgerrors "github.com/krrishnaik/Markly/pkg/errors"
)

// ── Declare ──

func TestAttendanceService_Declare_CreatesRecord(t *testing.T) {
	env := newTestEnv(t)
	env.meeting(t, "m1", "c1", "2026-10-20", "16:00", "18:00")

	rec, err := env.svc.Attendance.Declare(env.ctx, "m1", "u1")
	if err != nil {
		t.Fatalf("Declare 应成功: %v", err)
	}
	if rec.Status != string(model.StatusDeclared) {
		t.Errorf("期望 DECLARED，实际 %s", rec.Status)
	}
	if rec.Timestamp == nil || *rec.Timestamp != env.clock.Now().Format(time.RFC3339) {
		t.Errorf("声明时间应为当前时间，实际 %v", rec.Timestamp)
	}
	if rec.UpdatedBy != "u1" {
		t.Errorf("期望 UpdatedBy=u1，实际 %s", rec.UpdatedBy)
	}
}

func TestAttendanceService_Declare_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	env.meeting(t, "m1", "c1", "2026-10-20", "16:00", "18:00")

	first, err := env.svc.Attendance.Declare(env.ctx, "m1", "u1")
	if err != nil {
		t.Fatalf("第一次 Declare 失败: %v", err)
	}
	env.clock.Advance(5 * time.Minute)
	second, err := env.svc.Attendance.Declare(env.ctx, "m1", "u1")
	if err != nil {
		t.Fatalf("第二次 Declare 失败: %v", err)
	}

	if second.ID != first.ID || second.Status != first.Status || *second.Timestamp != *first.Timestamp || second.Version != first.Version {
		t.Errorf("重复声明应返回相同记录: first=%+v second=%+v", first, second)
	}
	recs, _ := env.repo.Attendance.ListByMeeting(env.ctx, "m1")
	if len(recs) != 1 {
		t.Errorf("不应产生重复记录，实际 %d 条", len(recs))
	}
}

func TestAttendanceService_Declare_FromRosterRecord(t *testing.T) {
	env := newTestEnv(t)
	env.meeting(t, "m1", "c1", "2026-10-20", "16:00", "18:00")
	rec := env.record(t, "m1", "u1", model.StatusNotDeclared)

	got, err := env.svc.Attendance.Declare(env.ctx, "m1", "u1")
	if err != nil {
		t.Fatalf("Declare 应成功: %v", err)
	}
	if got.ID != rec.RecordID || got.Version != 2 {
		t.Errorf("应更新已有记录并递增版本，实际 id=%s version=%d", got.ID, got.Version)
	}
}

func TestAttendanceService_Declare_UnknownMeeting(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Attendance.Declare(env.ctx, "missing", "u1")
	if !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Errorf("期望 ErrNotFound，实际: %v", err)
	}
}

func TestAttendanceService_Declare_AfterDecision(t *testing.T) {
	env := newTestEnv(t)

	for i, st := range []model.AttendanceStatus{model.StatusPresent, model.StatusAbsent, model.StatusExcused} {
		meetingID := fmt.Sprintf("m%d", i)
		env.meeting(t, meetingID, "c1", "2026-10-20", "16:00", "18:00")
		rec := env.record(t, meetingID, "u1", st)

		_, err := env.svc.Attendance.Declare(env.ctx, meetingID, "u1")
		if !errors.Is(err, pkgerrors.ErrInvalidTransition) {
			t.Errorf("%s 状态下声明期望 ErrInvalidTransition，实际: %v", st, err)
		}
		if errors.Is(err, pkgerrors.ErrMeetingClosed) {
			t.Errorf("%s 状态下声明不应返回 ErrMeetingClosed", st)
		}
		if got := env.status(t, rec.RecordID); got != st {
			t.Errorf("非法变更不应修改状态，期望 %s 实际 %s", st, got)
		}
	}
}

// ── SetLeadDecision ──

func TestAttendanceService_SetLeadDecision_ConfirmThenReject(t *testing.T) {
	env := newTestEnv(t)
	env.meeting(t, "m1", "c1", "2026-10-20", "16:00", "18:00")
	declared, _ := env.svc.Attendance.Declare(env.ctx, "m1", "u1")

	present, err := env.svc.Attendance.SetLeadDecision(env.ctx, declared.ID, model.StatusPresent, intPtr(declared.Version), "u2")
	if err != nil {
		t.Fatalf("确认出席失败: %v", err)
	}
	if present.Status != string(model.StatusPresent) || present.UpdatedBy != "u2" {
		t.Errorf("期望 PRESENT by u2，实际 %+v", present)
	}
	if *present.Timestamp != *declared.Timestamp {
		t.Error("负责人判定不应覆盖学生声明时间")
	}

	absent, err := env.svc.Attendance.SetLeadDecision(env.ctx, declared.ID, model.StatusAbsent, nil, "u2")
	if err != nil {
		t.Fatalf("改判缺勤失败: %v", err)
	}
	if absent.Status != string(model.StatusAbsent) {
		t.Errorf("期望 ABSENT，实际 %s", absent.Status)
	}
}

func TestAttendanceService_SetLeadDecision_WithoutDeclaration(t *testing.T) {
	env := newTestEnv(t)
	env.meeting(t, "m1", "c1", "2026-10-20", "16:00", "18:00")
	rec := env.record(t, "m1", "u4", model.StatusNotDeclared)

	got, err := env.svc.Attendance.SetLeadDecision(env.ctx, rec.RecordID, model.StatusPresent, nil, "u2")
	if err != nil {
		t.Fatalf("负责人可直接标记未声明学生: %v", err)
	}
	if got.Status != string(model.StatusPresent) || got.Timestamp == nil {
		t.Errorf("期望 PRESENT 且带时间，实际 %+v", got)
	}
}

func TestAttendanceService_SetLeadDecision_StaleVersion(t *testing.T) {
	env := newTestEnv(t)
	env.meeting(t, "m1", "c1", "2026-10-20", "16:00", "18:00")
	declared, _ := env.svc.Attendance.Declare(env.ctx, "m1", "u1")

	_, err := env.svc.Attendance.SetLeadDecision(env.ctx, declared.ID, model.StatusPresent, intPtr(declared.Version+1), "u2")
	if !errors.Is(err, pkgerrors.ErrConflict) {
		t.Fatalf("期望 ErrConflict，实际: %v", err)
	}
	if got := env.status(t, declared.ID); got != model.StatusDeclared {
		t.Errorf("版本冲突不应修改状态，实际 %s", got)
	}
}

func TestAttendanceService_SetLeadDecision_Rejected(t *testing.T) {
	env := newTestEnv(t)
	env.meeting(t, "m1", "c1", "2026-10-20", "16:00", "18:00")
	declared := env.record(t, "m1", "u1", model.StatusDeclared)
	excused := env.record(t, "m1", "u4", model.StatusExcused)

	tests := []struct {
		name     string
		recordID string
		decision model.AttendanceStatus
		want     error
	}{
		{"判定值非法", declared.RecordID, model.StatusExcused, pkgerrors.ErrInvalidTransition},
		{"判定值为 DECLARED", declared.RecordID, model.StatusDeclared, pkgerrors.ErrInvalidTransition},
		{"已豁免不可改判", excused.RecordID, model.StatusPresent, pkgerrors.ErrInvalidTransition},
		{"记录不存在", "missing", model.StatusPresent, pkgerrors.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.Attendance.SetLeadDecision(env.ctx, tt.recordID, tt.decision, nil, "u2")
			if !errors.Is(err, tt.want) {
				t.Errorf("期望 %v，实际: %v", tt.want, err)
			}
		})
	}
	if env.status(t, declared.RecordID) != model.StatusDeclared || env.status(t, excused.RecordID) != model.StatusExcused {
		t.Error("失败的判定不应修改状态")
	}
}

// ── Excuse ──

func TestAttendanceService_Excuse_OnlyFromAbsent(t *testing.T) {
	env := newTestEnv(t)

	for i, st := range []model.AttendanceStatus{model.StatusNotDeclared, model.StatusDeclared, model.StatusPresent, model.StatusExcused} {
		meetingID := fmt.Sprintf("m%d", i)
		env.meeting(t, meetingID, "c1", "2026-10-20", "16:00", "18:00")
		rec := env.record(t, meetingID, "u1", st)

		_, err := env.svc.Attendance.Excuse(env.ctx, rec.RecordID, nil, "u3")
		if !errors.Is(err, pkgerrors.ErrInvalidTransition) {
			t.Errorf("%s 状态下豁免期望 ErrInvalidTransition，实际: %v", st, err)
		}
		if got := env.status(t, rec.RecordID); got != st {
			t.Errorf("%s 豁免失败后状态应不变，实际 %s", st, got)
		}
	}
}

func TestAttendanceService_Excuse_AbsentAfterFinalize(t *testing.T) {
	env := newTestEnv(t)
	env.meeting(t, "m1", "c1", "2026-10-20", "08:00", "09:00")
	rec := env.record(t, "m1", "u1", model.StatusAbsent)

	if _, err := env.svc.Attendance.Finalize(env.ctx, "m1"); err != nil {
		t.Fatalf("Finalize 失败: %v", err)
	}

	got, err := env.svc.Attendance.Excuse(env.ctx, rec.RecordID, nil, "u3")
	if err != nil {
		t.Fatalf("定稿后仍应允许豁免: %v", err)
	}
	if got.Status != string(model.StatusExcused) || got.UpdatedBy != "u3" || !got.Locked {
		t.Errorf("期望已锁定的 EXCUSED by u3，实际 %+v", got)
	}
}

// ── Finalize ──

func TestAttendanceService_Finalize_ClosesMeeting(t *testing.T) {
	env := newTestEnv(t)
	env.meeting(t, "m1", "c1", "2026-10-20", "08:00", "09:00")
	declared := env.record(t, "m1", "u1", model.StatusDeclared)
	present := env.record(t, "m1", "u4", model.StatusPresent)

	resp, err := env.svc.Attendance.Finalize(env.ctx, "m1")
	if err != nil {
		t.Fatalf("Finalize 失败: %v", err)
	}
	if resp.LockedRecords != 2 || resp.Meeting.Status != model.MeetingCompleted {
		t.Errorf("期望锁定 2 条且会议 COMPLETED，实际 %+v", resp)
	}

	before, _ := env.repo.Attendance.ListByMeeting(env.ctx, "m1")

	if _, err := env.svc.Attendance.Declare(env.ctx, "m1", "u1"); !errors.Is(err, pkgerrors.ErrMeetingClosed) {
		t.Errorf("定稿后声明期望 ErrMeetingClosed，实际: %v", err)
	}
	if _, err := env.svc.Attendance.SetLeadDecision(env.ctx, declared.RecordID, model.StatusPresent, nil, "u2"); !errors.Is(err, pkgerrors.ErrMeetingClosed) {
		t.Errorf("定稿后判定期望 ErrMeetingClosed，实际: %v", err)
	}
	if _, err := env.svc.Attendance.SetLeadDecision(env.ctx, present.RecordID, model.StatusAbsent, nil, "u2"); !errors.Is(err, pkgerrors.ErrInvalidTransition) {
		t.Errorf("ErrMeetingClosed 应同时属于 ErrInvalidTransition，实际: %v", err)
	}

	after, _ := env.repo.Attendance.ListByMeeting(env.ctx, "m1")
	if len(after) != len(before) {
		t.Fatalf("定稿后记录数不应变化: %d → %d", len(before), len(after))
	}
	for i := range after {
		if after[i].Status != before[i].Status || after[i].Version != before[i].Version {
			t.Errorf("定稿后记录不应变化: %+v → %+v", before[i], after[i])
		}
	}
}

func TestAttendanceService_Finalize_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	env.meeting(t, "m1", "c1", "2026-10-20", "08:00", "09:00")
	env.record(t, "m1", "u1", model.StatusDeclared)

	first, err := env.svc.Attendance.Finalize(env.ctx, "m1")
	if err != nil {
		t.Fatalf("第一次 Finalize 失败: %v", err)
	}
	second, err := env.svc.Attendance.Finalize(env.ctx, "m1")
	if err != nil {
		t.Fatalf("重复 Finalize 应成功: %v", err)
	}
	if first.LockedRecords != 1 || second.LockedRecords != 0 {
		t.Errorf("期望锁定 1 / 0 条，实际 %d / %d", first.LockedRecords, second.LockedRecords)
	}
	if second.Meeting.Version != first.Meeting.Version {
		t.Errorf("重复定稿不应修改会议，版本 %d → %d", first.Meeting.Version, second.Meeting.Version)
	}
}

func TestAttendanceService_Finalize_UnknownMeeting(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.svc.Attendance.Finalize(env.ctx, "missing"); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Errorf("期望 ErrNotFound，实际: %v", err)
	}
}

func TestAttendanceService_FinalizeEnded(t *testing.T) {
	env := newTestEnv(t)
	env.meeting(t, "ended", "c1", "2026-10-20", "08:00", "09:00")
	env.meeting(t, "yesterday", "c2", "2026-10-19", "16:00", "18:00")
	env.meeting(t, "later", "c1", "2026-10-20", "16:00", "18:00")

	n, err := env.svc.Attendance.FinalizeEnded(env.ctx)
	if err != nil {
		t.Fatalf("FinalizeEnded 失败: %v", err)
	}
	if n != 2 {
		t.Errorf("期望定稿 2 场，实际 %d", n)
	}
	later, _ := env.repo.Meeting.GetByID(env.ctx, "later")
	if later.IsClosed() {
		t.Error("尚未结束的会议不应被定稿")
	}

	n, _ = env.svc.Attendance.FinalizeEnded(env.ctx)
	if n != 0 {
		t.Errorf("再次执行应无会议可定稿，实际 %d", n)
	}
}

// ── OpenRoster ──

func TestAttendanceService_OpenRoster(t *testing.T) {
	env := newTestEnv(t)
	env.meeting(t, "m1", "c1", "2026-10-20", "16:00", "18:00")
	if _, err := env.svc.Attendance.Declare(env.ctx, "m1", "u1"); err != nil {
		t.Fatalf("Declare 失败: %v", err)
	}

	resp, err := env.svc.Attendance.OpenRoster(env.ctx, "m1")
	if err != nil {
		t.Fatalf("OpenRoster 失败: %v", err)
	}
	if resp.Created != 1 {
		t.Errorf("仅应为 u4 建立记录，实际 %d 条", resp.Created)
	}

	again, _ := env.svc.Attendance.OpenRoster(env.ctx, "m1")
	if again.Created != 0 {
		t.Errorf("重复调用不应新增记录，实际 %d 条", again.Created)
	}

	recs, _ := env.svc.Attendance.RecordsForMeeting(env.ctx, "m1")
	if len(recs) != 2 || recs[0].StudentID != "u1" || recs[1].StudentID != "u4" {
		t.Fatalf("期望 u1/u4 两条记录，实际 %+v", recs)
	}
	if recs[0].Status != string(model.StatusDeclared) || recs[1].Status != string(model.StatusNotDeclared) {
		t.Errorf("名单不应覆盖已声明记录: %+v", recs)
	}
	if recs[1].Student == nil || recs[1].Student.Name != "Kabir Singh" {
		t.Errorf("记录应携带学生信息，实际 %+v", recs[1].Student)
	}
}

// ── 查询 ──

func TestAttendanceService_HistoryForStudent(t *testing.T) {
	env := newTestEnv(t)
	env.meeting(t, "m-old", "c1", "2026-10-01", "16:00", "18:00")
	env.meeting(t, "m-new-am", "c2", "2026-10-15", "09:00", "10:00")
	env.meeting(t, "m-new-pm", "c1", "2026-10-15", "16:00", "17:00")
	env.meeting(t, "m-mid", "c2", "2026-10-08", "16:00", "18:00")
	for _, id := range []string{"m-old", "m-new-am", "m-new-pm", "m-mid"} {
		env.record(t, id, "u1", model.StatusPresent)
	}

	history, err := env.svc.Attendance.HistoryForStudent(env.ctx, "u1", nil)
	if err != nil {
		t.Fatalf("HistoryForStudent 失败: %v", err)
	}
	want := []string{"m-new-pm", "m-new-am", "m-mid", "m-old"}
	if len(history) != len(want) {
		t.Fatalf("期望 %d 条，实际 %d 条", len(want), len(history))
	}
	for i, id := range want {
		if history[i].Meeting.ID != id {
			t.Errorf("第 %d 条期望 %s，实际 %s", i, id, history[i].Meeting.ID)
		}
	}

	filtered, _ := env.svc.Attendance.HistoryForStudent(env.ctx, "u1", strPtr("c1"))
	if len(filtered) != 2 {
		t.Fatalf("按 c1 过滤期望 2 条，实际 %d 条", len(filtered))
	}
	for _, h := range filtered {
		if h.Meeting.ClubID != "c1" {
			t.Errorf("过滤结果不应包含其他社团会议: %s", h.Meeting.ClubID)
		}
	}
	if filtered[0].Meeting.ID != "m-new-pm" || filtered[1].Meeting.ID != "m-old" {
		t.Errorf("过滤后仍应按日期倒序，实际 %s, %s", filtered[0].Meeting.ID, filtered[1].Meeting.ID)
	}
}

func TestAttendanceService_SummaryForStudent(t *testing.T) {
	env := newTestEnv(t)
	statuses := []model.AttendanceStatus{
		model.StatusPresent, model.StatusPresent, model.StatusAbsent, model.StatusExcused, model.StatusDeclared,
	}
	for i, st := range statuses {
		id := fmt.Sprintf("m%d", i)
		env.meeting(t, id, "c1", fmt.Sprintf("2026-10-0%d", i+1), "16:00", "18:00")
		env.record(t, id, "u1", st)
	}

	sum, err := env.svc.Attendance.SummaryForStudent(env.ctx, "u1")
	if err != nil {
		t.Fatalf("SummaryForStudent 失败: %v", err)
	}
	if sum.Counts.Total != 5 || sum.Counts.Present != 2 || sum.Counts.Declared != 1 {
		t.Errorf("统计不正确: %+v", sum.Counts)
	}
	if sum.AttendanceRate != 0.75 {
		t.Errorf("出勤率期望 0.75，实际 %v", sum.AttendanceRate)
	}
}

func TestAttendanceService_MeetingSummary(t *testing.T) {
	env := newTestEnv(t)
	env.meeting(t, "m1", "c1", "2026-10-20", "16:00", "18:00")
	env.record(t, "m1", "u1", model.StatusDeclared)
	env.record(t, "m1", "u4", model.StatusAbsent)

	sum, err := env.svc.Attendance.MeetingSummary(env.ctx, "m1")
	if err != nil {
		t.Fatalf("MeetingSummary 失败: %v", err)
	}
	if sum.Pending != 1 || sum.Counts.Absent != 1 || sum.Counts.Total != 2 {
		t.Errorf("统计不正确: %+v", sum)
	}
}

func TestAttendanceService_MeetingOfRecord(t *testing.T) {
	env := newTestEnv(t)
	env.meeting(t, "m1", "c1", "2026-10-20", "16:00", "18:00")
	rec := env.record(t, "m1", "u1", model.StatusDeclared)

	m, err := env.svc.Attendance.MeetingOfRecord(env.ctx, rec.RecordID)
	if err != nil || m.ClubID != "c1" {
		t.Fatalf("期望返回 c1 的会议，实际 %+v err=%v", m, err)
	}
	if _, err := env.svc.Attendance.MeetingOfRecord(env.ctx, "missing"); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("期望 ErrRecordNotFound，实际: %v", err)
	}
}
