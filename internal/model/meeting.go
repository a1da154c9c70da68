package model

// ── 会议生命周期 ──

const (
	MeetingScheduled = "SCHEDULED"
	MeetingCompleted = "COMPLETED" // 终态
)

// Meeting 社团会议表 — 对应 meetings
type Meeting struct {
	MeetingID   string `gorm:"type:varchar(64);primaryKey"                   json:"meeting_id"`
	ClubID      string `gorm:"type:varchar(64);not null;index"               json:"club_id"`
	Title       string `gorm:"type:varchar(200);not null"                    json:"title"`
	Description string `gorm:"type:text"                                     json:"description,omitempty"`
	Date        string `gorm:"type:varchar(10);not null;index"               json:"date"`       // YYYY-MM-DD
	StartTime   string `gorm:"type:varchar(5);not null"                      json:"start_time"` // HH:MM
	EndTime     string `gorm:"type:varchar(5);not null"                      json:"end_time"`   // HH:MM
	Location    string `gorm:"type:varchar(200)"                             json:"location"`
	Status      string `gorm:"type:varchar(20);not null;default:'SCHEDULED'" json:"status"`
	CreatedBy   string `gorm:"type:varchar(64)"                              json:"created_by,omitempty"`
	VersionedModel

	// 关联
	Club *Club `gorm:"foreignKey:ClubID;references:ClubID" json:"club,omitempty"`
}

// TableName 指定表名
func (Meeting) TableName() string { return "meetings" }

// IsClosed 会议是否已结束（不再接受考勤写入）
func (m *Meeting) IsClosed() bool {
	return m.Status == MeetingCompleted
}

// EndedBy 会议结束时间是否不晚于给定的日期与时刻
func (m *Meeting) EndedBy(date, clock string) bool {
	if m.Date != date {
		return m.Date < date
	}
	return m.EndTime <= clock
}
