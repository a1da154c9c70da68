package model

import "time"

// LectureSlot 课程时段表 — 对应 lecture_slots（外部参考数据，来自手工录入或 ICS 导入）
type LectureSlot struct {
	LectureSlotID string `gorm:"type:varchar(64);primaryKey"                json:"lecture_slot_id"`
	SubjectCode   string `gorm:"type:varchar(20);not null"                  json:"subject_code"`
	SubjectName   string `gorm:"type:varchar(200);not null"                 json:"subject_name"`
	Date          string `gorm:"type:varchar(10);not null;index"            json:"date"`
	StartTime     string `gorm:"type:varchar(5);not null"                   json:"start_time"`
	EndTime       string `gorm:"type:varchar(5);not null"                   json:"end_time"`
	Branch        string `gorm:"type:varchar(100)"                          json:"branch,omitempty"`
	Year          string `gorm:"type:varchar(20)"                           json:"year,omitempty"`
	Source        string `gorm:"type:varchar(20);not null;default:'manual'" json:"source"` // manual | ics
	BaseModel
}

// TableName 指定表名
func (LectureSlot) TableName() string { return "lecture_slots" }

// TimeSlot 展示用时段文本，如 "16:00 - 17:00"
func (l *LectureSlot) TimeSlot() string {
	return l.StartTime + " - " + l.EndTime
}

// ── 冲突处理 ──

const (
	DecisionExcuse = "EXCUSE"
	DecisionReject = "REJECT"
)

// ConflictResolution 冲突处理记录表 — 对应 conflict_resolutions
// 冲突本身为派生视图不落库，这里只记录教师的处理结论
type ConflictResolution struct {
	ResolutionID string    `gorm:"type:varchar(64);primaryKey"     json:"resolution_id"`
	ConflictID   string    `gorm:"type:varchar(64);not null;index" json:"conflict_id"`
	StudentID    string    `gorm:"type:varchar(64);not null"       json:"student_id"`
	RecordID     string    `gorm:"type:varchar(64);not null"       json:"record_id"`
	Decision     string    `gorm:"type:varchar(10);not null"       json:"decision"` // EXCUSE | REJECT
	ResolvedBy   string    `gorm:"type:varchar(64)"                json:"resolved_by"`
	ResolvedAt   time.Time `gorm:"not null"                        json:"resolved_at"`
}

// TableName 指定表名
func (ConflictResolution) TableName() string { return "conflict_resolutions" }

// ── 冲突视图 ──

// AffectedStudent 冲突中受影响的学生及其在重叠会议上的考勤记录
type AffectedStudent struct {
	StudentID string           `json:"student_id"`
	RecordID  string           `json:"record_id"`
	MeetingID string           `json:"meeting_id"`
	Status    AttendanceStatus `json:"status"`
}

// LectureConflict 会议与课程时段重叠产生的冲突（派生视图，不落库）
// ConflictID 即课程时段 ID：同一课程时段上的多个重叠会议合并为一条冲突
type LectureConflict struct {
	ConflictID    string            `json:"conflict_id"`
	SubjectCode   string            `json:"subject_code"`
	SubjectName   string            `json:"subject_name"`
	Date          string            `json:"date"`
	TimeSlot      string            `json:"time_slot"`
	MeetingIDs    []string          `json:"meeting_ids"`
	Affected      []AffectedStudent `json:"affected"` // 按 StudentID 升序
	AffectedCount int               `json:"affected_count"`
}

// StudentIDs 受影响学生 ID 列表
func (c *LectureConflict) StudentIDs() []string {
	ids := make([]string, len(c.Affected))
	for i, a := range c.Affected {
		ids[i] = a.StudentID
	}
	return ids
}
