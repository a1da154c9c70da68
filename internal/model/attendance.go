package model

import "time"

// AttendanceStatus 考勤状态
//
//	NOT_DECLARED → DECLARED → PRESENT
//	                        → ABSENT
//	NOT_DECLARED → PRESENT | ABSENT   （负责人直接标记）
//	PRESENT ↔ ABSENT                   （负责人改判）
//	ABSENT → EXCUSED                   （仅教师）
type AttendanceStatus string

const (
	StatusNotDeclared AttendanceStatus = "NOT_DECLARED"
	StatusDeclared    AttendanceStatus = "DECLARED"
	StatusPresent     AttendanceStatus = "PRESENT"
	StatusAbsent      AttendanceStatus = "ABSENT"
	StatusExcused     AttendanceStatus = "EXCUSED"
)

// Valid 是否为已定义的状态
func (s AttendanceStatus) Valid() bool {
	switch s {
	case StatusNotDeclared, StatusDeclared, StatusPresent, StatusAbsent, StatusExcused:
		return true
	default:
		return false
	}
}

// CountsAsAttending 学生是否被视为实际参加了社团活动（参与课程冲突计算）
func (s AttendanceStatus) CountsAsAttending() bool {
	return s == StatusDeclared || s == StatusPresent
}

// AttendanceAction 触发状态变更的动作
type AttendanceAction string

const (
	ActionDeclare     AttendanceAction = "declare"      // 学生自报
	ActionMarkPresent AttendanceAction = "mark_present" // 负责人确认
	ActionMarkAbsent  AttendanceAction = "mark_absent"  // 负责人驳回 / 直接标缺勤
	ActionExcuse      AttendanceAction = "excuse"       // 教师豁免
)

// transitions 合法状态变更表：当前状态 → 动作 → 目标状态
var transitions = map[AttendanceStatus]map[AttendanceAction]AttendanceStatus{
	StatusNotDeclared: {
		ActionDeclare:     StatusDeclared,
		ActionMarkPresent: StatusPresent,
		ActionMarkAbsent:  StatusAbsent,
	},
	StatusDeclared: {
		ActionDeclare:     StatusDeclared,
		ActionMarkPresent: StatusPresent,
		ActionMarkAbsent:  StatusAbsent,
	},
	StatusPresent: {
		ActionMarkPresent: StatusPresent,
		ActionMarkAbsent:  StatusAbsent,
	},
	StatusAbsent: {
		ActionMarkPresent: StatusPresent,
		ActionMarkAbsent:  StatusAbsent,
		ActionExcuse:      StatusExcused,
	},
	StatusExcused: {},
}

// Next 返回在当前状态执行 action 后的目标状态；不合法时 ok=false
func (s AttendanceStatus) Next(action AttendanceAction) (next AttendanceStatus, ok bool) {
	next, ok = transitions[s][action]
	return next, ok
}

// DecisionAction 将负责人判定（PRESENT/ABSENT）映射为动作
func DecisionAction(decision AttendanceStatus) (AttendanceAction, bool) {
	switch decision {
	case StatusPresent:
		return ActionMarkPresent, true
	case StatusAbsent:
		return ActionMarkAbsent, true
	default:
		return "", false
	}
}

// AttendanceRecord 考勤记录表 — 对应 attendance_records
// (meeting_id, student_id) 唯一
type AttendanceRecord struct {
	RecordID  string           `gorm:"type:varchar(64);primaryKey"                                       json:"record_id"`
	MeetingID string           `gorm:"type:varchar(64);not null;uniqueIndex:uk_attendance_meeting_student" json:"meeting_id"`
	StudentID string           `gorm:"type:varchar(64);not null;uniqueIndex:uk_attendance_meeting_student;index" json:"student_id"`
	Status    AttendanceStatus `gorm:"type:varchar(20);not null;default:'NOT_DECLARED'"                  json:"status"`
	Timestamp *time.Time       `json:"timestamp,omitempty"` // 首次声明/标记时间，未操作时为空
	UpdatedBy string           `gorm:"type:varchar(64)"                                                  json:"updated_by,omitempty"`
	LockedAt  *time.Time       `json:"locked_at,omitempty"` // 会议定稿时间
	VersionedModel

	// 关联
	Meeting *Meeting `gorm:"foreignKey:MeetingID;references:MeetingID" json:"meeting,omitempty"`
	Student *User    `gorm:"foreignKey:StudentID;references:UserID"    json:"student,omitempty"`
}

// TableName 指定表名
func (AttendanceRecord) TableName() string { return "attendance_records" }

// Apply 执行状态变更，成功时更新 Status / Timestamp / UpdatedBy。
// 这是唯一允许写 Status 的入口。
func (r *AttendanceRecord) Apply(action AttendanceAction, actorID string, at time.Time) bool {
	next, ok := r.Status.Next(action)
	if !ok {
		return false
	}
	r.Status = next
	r.UpdatedBy = actorID
	if r.Timestamp == nil || action == ActionDeclare {
		t := at
		r.Timestamp = &t
	}
	return true
}
