package dto

// ── 考勤模块 DTO ──

// LeadDecisionRequest 负责人确认 / 驳回请求
type LeadDecisionRequest struct {
	Decision        string `json:"decision" binding:"required"`
	ExpectedVersion *int   `json:"expected_version" binding:"omitempty,min=1"`
}

// ExcuseRequest 教师豁免请求
type ExcuseRequest struct {
	ExpectedVersion *int `json:"expected_version" binding:"omitempty,min=1"`
}

// HistoryRequest 学生考勤历史查询参数
type HistoryRequest struct {
	ClubID string `form:"club_id"`
}

// StudentBrief 学生简要信息
type StudentBrief struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	AdmissionNumber string `json:"admission_number,omitempty"`
	Branch          string `json:"branch,omitempty"`
	Year            string `json:"year,omitempty"`
}

// AttendanceRecordResponse 考勤记录
type AttendanceRecordResponse struct {
	ID        string        `json:"id"`
	MeetingID string        `json:"meeting_id"`
	StudentID string        `json:"student_id"`
	Student   *StudentBrief `json:"student,omitempty"`
	Status    string        `json:"status"`
	Timestamp *string       `json:"timestamp,omitempty"`
	UpdatedBy string        `json:"updated_by,omitempty"`
	Locked    bool          `json:"locked"`
	Version   int           `json:"version"`
}

// HistoryEntryResponse 学生考勤历史条目（记录 + 会议）
type HistoryEntryResponse struct {
	Record  AttendanceRecordResponse `json:"record"`
	Meeting MeetingResponse          `json:"meeting"`
}

// StatusCounts 各状态计数
type StatusCounts struct {
	Total       int `json:"total"`
	NotDeclared int `json:"not_declared"`
	Declared    int `json:"declared"`
	Present     int `json:"present"`
	Absent      int `json:"absent"`
	Excused     int `json:"excused"`
}

// StudentSummaryResponse 学生考勤汇总
// AttendanceRate = (PRESENT + EXCUSED) / (PRESENT + ABSENT + EXCUSED)，无已判定记录时为 0
type StudentSummaryResponse struct {
	StudentID      string       `json:"student_id"`
	Counts         StatusCounts `json:"counts"`
	AttendanceRate float64      `json:"attendance_rate"`
}

// MeetingSummaryResponse 会议考勤汇总（负责人待处理数）
type MeetingSummaryResponse struct {
	MeetingID string       `json:"meeting_id"`
	Counts    StatusCounts `json:"counts"`
	Pending   int          `json:"pending"` // 已声明待确认
}
