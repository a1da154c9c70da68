package model

// ── 角色 ──

const (
	RoleStudent = "STUDENT"
	RoleLead    = "LEAD"
	RoleFaculty = "FACULTY"
)

// User 用户表 — 对应 users
// 学生使用 AdmissionNumber/Branch/Year/JoinedClubIDs；负责人使用 ClubID
type User struct {
	UserID          string      `gorm:"type:varchar(64);primaryKey"   json:"user_id"`
	Name            string      `gorm:"type:varchar(100);not null"    json:"name"`
	Email           string      `gorm:"type:varchar(255);uniqueIndex" json:"email"`
	PasswordHash    string      `gorm:"type:varchar(255);not null"    json:"-"`
	Role            string      `gorm:"type:varchar(20);not null"     json:"role"`
	AdmissionNumber string      `gorm:"type:varchar(32)"              json:"admission_number,omitempty"`
	Branch          string      `gorm:"type:varchar(100)"             json:"branch,omitempty"`
	Year            string      `gorm:"type:varchar(20)"              json:"year,omitempty"`
	JoinedClubIDs   StringArray `gorm:"type:text[]"                   json:"joined_club_ids,omitempty"`
	ClubID          *string     `gorm:"type:varchar(64)"              json:"club_id,omitempty"`
	BaseModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// IsStudentOf 学生是否加入了指定社团
func (u *User) IsStudentOf(clubID string) bool {
	return u.Role == RoleStudent && u.JoinedClubIDs.Contains(clubID)
}

// LeadsClub 是否为指定社团的负责人
func (u *User) LeadsClub(clubID string) bool {
	return u.Role == RoleLead && u.ClubID != nil && *u.ClubID == clubID
}
