package model

// Club 社团表 — 对应 clubs（静态参考数据）
type Club struct {
	ClubID      string `gorm:"type:varchar(64);primaryKey" json:"club_id"`
	Name        string `gorm:"type:varchar(100);not null"  json:"name"`
	Category    string `gorm:"type:varchar(50);not null"   json:"category"`
	Description string `gorm:"type:text"                   json:"description,omitempty"`
	BaseModel
}

// TableName 指定表名
func (Club) TableName() string { return "clubs" }

// Announcement 社团公告表 — 对应 announcements
type Announcement struct {
	AnnouncementID string `gorm:"type:varchar(64);primaryKey"               json:"announcement_id"`
	ClubID         string `gorm:"type:varchar(64);not null;index"           json:"club_id"`
	Title          string `gorm:"type:varchar(200);not null"                json:"title"`
	Content        string `gorm:"type:text;not null"                        json:"content"`
	Date           string `gorm:"type:varchar(10);not null"                 json:"date"`
	Priority       string `gorm:"type:varchar(10);not null;default:'NORMAL'" json:"priority"` // NORMAL | HIGH
	CreatedBy      string `gorm:"type:varchar(64)"                          json:"created_by,omitempty"`
	BaseModel

	// 关联
	Club *Club `gorm:"foreignKey:ClubID;references:ClubID" json:"club,omitempty"`
}

// TableName 指定表名
func (Announcement) TableName() string { return "announcements" }

const (
	PriorityNormal = "NORMAL"
	PriorityHigh   = "HIGH"
)
