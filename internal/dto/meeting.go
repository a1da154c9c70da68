package dto

// ── 会议模块 DTO ──

// CreateMeetingRequest 创建会议请求
// 时间格式由 isodate / hhmm 校验；先后顺序与是否过期由 MeetingService 校验
type CreateMeetingRequest struct {
	ClubID      string `json:"club_id"`
	Title       string `json:"title"       binding:"required,max=200"`
	Description string `json:"description" binding:"max=2000"`
	Date        string `json:"date"        binding:"required,isodate"`
	StartTime   string `json:"start_time"  binding:"required,hhmm"`
	EndTime     string `json:"end_time"    binding:"required,hhmm"`
	Location    string `json:"location"    binding:"max=200"`
}

// MeetingListRequest 会议列表查询参数
type MeetingListRequest struct {
	ClubID string `form:"club_id"`
	Status string `form:"status" binding:"omitempty,oneof=SCHEDULED COMPLETED"`
}

// MeetingResponse 会议
type MeetingResponse struct {
	ID          string     `json:"id"`
	ClubID      string     `json:"club_id"`
	Club        *ClubBrief `json:"club,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Date        string     `json:"date"`
	StartTime   string     `json:"start_time"`
	EndTime     string     `json:"end_time"`
	Location    string     `json:"location"`
	Status      string     `json:"status"`
	Version     int        `json:"version"`
}

// FinalizeResponse 定稿结果
type FinalizeResponse struct {
	Meeting       MeetingResponse `json:"meeting"`
	LockedRecords int64           `json:"locked_records"`
}

// RosterResponse 开放签到名单结果
type RosterResponse struct {
	MeetingID string `json:"meeting_id"`
	Created   int    `json:"created"`
}
