package dto

// ── 课程冲突模块 DTO ──

// ConflictListRequest 待处理冲突查询参数，日期均为 YYYY-MM-DD（含端点）
type ConflictListRequest struct {
	From  string `form:"from"  binding:"required,isodate"`
	To    string `form:"to"    binding:"required,isodate"`
	Group string `form:"group" binding:"omitempty,oneof=year"`
}

// ResolveConflictRequest 处理冲突请求
type ResolveConflictRequest struct {
	StudentID string `json:"student_id" binding:"required"`
	Decision  string `json:"decision"   binding:"required"`
}

// AffectedStudentResponse 冲突中受影响的学生
type AffectedStudentResponse struct {
	StudentBrief
	RecordID  string `json:"record_id"`
	MeetingID string `json:"meeting_id"`
	ClubName  string `json:"club_name,omitempty"`
	Status    string `json:"status"`
}

// LectureConflictResponse 课程冲突
type LectureConflictResponse struct {
	ID               string                    `json:"id"`
	SubjectCode      string                    `json:"subject_code"`
	SubjectName      string                    `json:"subject_name"`
	Date             string                    `json:"date"`
	TimeSlot         string                    `json:"time_slot"`
	MeetingIDs       []string                  `json:"meeting_ids"`
	AffectedStudents []AffectedStudentResponse `json:"affected_students"`
	AffectedCount    int                       `json:"affected_count"`
}

// ConflictYearGroup 按学生年级分组的冲突（教师视图）
type ConflictYearGroup struct {
	Year      string                    `json:"year"`
	Conflicts []LectureConflictResponse `json:"conflicts"`
}

// ResolutionResponse 冲突处理结果
type ResolutionResponse struct {
	ID         string                    `json:"id"`
	ConflictID string                    `json:"conflict_id"`
	StudentID  string                    `json:"student_id"`
	Decision   string                    `json:"decision"`
	ResolvedBy string                    `json:"resolved_by,omitempty"`
	ResolvedAt string                    `json:"resolved_at"`
	Record     *AttendanceRecordResponse `json:"record,omitempty"`
}
