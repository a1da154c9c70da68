package service

import (
	"time"

	"github.com/krrishnaik/Markly/internal/dto"
	"github.com/krrishnaik/Markly/internal/model"
)

// ── model → dto 转换 ──

func toUserResponse(u *model.User) dto.UserResponse {
	return dto.UserResponse{
		ID:              u.UserID,
		Name:            u.Name,
		Email:           u.Email,
		Role:            u.Role,
		AdmissionNumber: u.AdmissionNumber,
		Branch:          u.Branch,
		Year:            u.Year,
		JoinedClubIDs:   []string(u.JoinedClubIDs),
		ClubID:          u.ClubID,
	}
}

func toClubBrief(c *model.Club) *dto.ClubBrief {
	if c == nil {
		return nil
	}
	return &dto.ClubBrief{ID: c.ClubID, Name: c.Name}
}

func toClubResponse(c *model.Club) dto.ClubResponse {
	return dto.ClubResponse{
		ID:          c.ClubID,
		Name:        c.Name,
		Category:    c.Category,
		Description: c.Description,
	}
}

func toMeetingResponse(m *model.Meeting) dto.MeetingResponse {
	return dto.MeetingResponse{
		ID:          m.MeetingID,
		ClubID:      m.ClubID,
		Club:        toClubBrief(m.Club),
		Title:       m.Title,
		Description: m.Description,
		Date:        m.Date,
		StartTime:   m.StartTime,
		EndTime:     m.EndTime,
		Location:    m.Location,
		Status:      m.Status,
		Version:     m.Version,
	}
}

func toStudentBrief(u *model.User) *dto.StudentBrief {
	if u == nil {
		return nil
	}
	return &dto.StudentBrief{
		ID:              u.UserID,
		Name:            u.Name,
		AdmissionNumber: u.AdmissionNumber,
		Branch:          u.Branch,
		Year:            u.Year,
	}
}

func toRecordResponse(r *model.AttendanceRecord) dto.AttendanceRecordResponse {
	resp := dto.AttendanceRecordResponse{
		ID:        r.RecordID,
		MeetingID: r.MeetingID,
		StudentID: r.StudentID,
		Student:   toStudentBrief(r.Student),
		Status:    string(r.Status),
		UpdatedBy: r.UpdatedBy,
		Locked:    r.LockedAt != nil,
		Version:   r.Version,
	}
	if r.Timestamp != nil {
		ts := r.Timestamp.Format(time.RFC3339)
		resp.Timestamp = &ts
	}
	return resp
}

func toLectureSlotResponse(l *model.LectureSlot) dto.LectureSlotResponse {
	return dto.LectureSlotResponse{
		ID:          l.LectureSlotID,
		SubjectCode: l.SubjectCode,
		SubjectName: l.SubjectName,
		Date:        l.Date,
		StartTime:   l.StartTime,
		EndTime:     l.EndTime,
		TimeSlot:    l.TimeSlot(),
		Branch:      l.Branch,
		Year:        l.Year,
		Source:      l.Source,
	}
}

// countStatuses 统计各状态数量
func countStatuses(recs []model.AttendanceRecord) dto.StatusCounts {
	var c dto.StatusCounts
	for _, r := range recs {
		c.Total++
		switch r.Status {
		case model.StatusNotDeclared:
			c.NotDeclared++
		case model.StatusDeclared:
			c.Declared++
		case model.StatusPresent:
			c.Present++
		case model.StatusAbsent:
			c.Absent++
		case model.StatusExcused:
			c.Excused++
		}
	}
	return c
}
