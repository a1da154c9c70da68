package dto

// ── 课程时段 DTO ──

// CreateLectureSlotRequest 手工录入课程时段
type CreateLectureSlotRequest struct {
	SubjectCode string `json:"subject_code" binding:"required,max=20"`
	SubjectName string `json:"subject_name" binding:"required,max=200"`
	Date        string `json:"date"         binding:"required,isodate"`
	StartTime   string `json:"start_time"   binding:"required,hhmm"`
	EndTime     string `json:"end_time"     binding:"required,hhmm"`
	Branch      string `json:"branch"       binding:"max=100"`
	Year        string `json:"year"         binding:"max=20"`
}

// ImportICSRequest 从 URL 导入课表（也支持 multipart 上传 file 字段）
type ImportICSRequest struct {
	URL    string `json:"url"    form:"url"`
	Branch string `json:"branch" form:"branch"`
	Year   string `json:"year"   form:"year"`
}

// LectureSlotListRequest 课程时段查询参数
type LectureSlotListRequest struct {
	From string `form:"from" binding:"required,isodate"`
	To   string `form:"to"   binding:"required,isodate"`
}

// LectureSlotResponse 课程时段
type LectureSlotResponse struct {
	ID          string `json:"id"`
	SubjectCode string `json:"subject_code"`
	SubjectName string `json:"subject_name"`
	Date        string `json:"date"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	TimeSlot    string `json:"time_slot"`
	Branch      string `json:"branch,omitempty"`
	Year        string `json:"year,omitempty"`
	Source      string `json:"source"`
}

// ImportICSResponse 导入结果
type ImportICSResponse struct {
	Imported int                   `json:"imported"`
	Slots    []LectureSlotResponse `json:"slots"`
}
