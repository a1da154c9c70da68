package dto

// ── 用户 ──

// UserResponse 用户信息响应（脱敏）
type UserResponse struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Email           string   `json:"email"`
	Role            string   `json:"role"`
	AdmissionNumber string   `json:"admission_number,omitempty"`
	Branch          string   `json:"branch,omitempty"`
	Year            string   `json:"year,omitempty"`
	JoinedClubIDs   []string `json:"joined_club_ids,omitempty"`
	ClubID          *string  `json:"club_id,omitempty"`
}

// ── 社团 ──

// ClubResponse 社团信息
type ClubResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description,omitempty"`
}

// ClubBrief 社团简要信息
type ClubBrief struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ── 公告 ──

// CreateAnnouncementRequest 发布公告请求
type CreateAnnouncementRequest struct {
	Title    string `json:"title"    binding:"required,max=200"`
	Content  string `json:"content"  binding:"required"`
	Priority string `json:"priority" binding:"omitempty,oneof=NORMAL HIGH"`
}

// AnnouncementResponse 公告
type AnnouncementResponse struct {
	ID       string     `json:"id"`
	Club     *ClubBrief `json:"club,omitempty"`
	Title    string     `json:"title"`
	Content  string     `json:"content"`
	Date     string     `json:"date"`
	Priority string     `json:"priority"`
}
