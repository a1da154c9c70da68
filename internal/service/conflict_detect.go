package service

import (
	"iter"
	"sort"

	"github.com/krrishnaik/Markly/internal/model"
)

// RecordIndex 会议 ID → 该会议的考勤记录
type RecordIndex map[string][]model.AttendanceRecord

// NewRecordIndex 按会议归集记录
func NewRecordIndex(recs []model.AttendanceRecord) RecordIndex {
	idx := make(RecordIndex)
	for _, r := range recs {
		idx[r.MeetingID] = append(idx[r.MeetingID], r)
	}
	return idx
}

// DetectConflicts 计算会议与课程时段的冲突。
//
// 对每个课程时段 L 与同日会议 M，若 M.start < L.end 且 L.start < M.end，
// 则 M 上状态为 DECLARED 或 PRESENT 的学生受影响。冲突按课程时段归并，
// 无受影响学生的时段不产出。输出按 (日期, 开始时间, 课程代码, 时段 ID) 排序，
// 学生按 ID 排序。
//
// 纯函数：不修改入参，相同输入每次迭代得到相同结果。
func DetectConflicts(meetings []model.Meeting, slots []model.LectureSlot, index RecordIndex) iter.Seq[model.LectureConflict] {
	sorted := make([]model.LectureSlot, len(slots))
	copy(sorted, slots)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		if a.SubjectCode != b.SubjectCode {
			return a.SubjectCode < b.SubjectCode
		}
		return a.LectureSlotID < b.LectureSlotID
	})

	byDate := make(map[string][]model.Meeting)
	for _, m := range meetings {
		byDate[m.Date] = append(byDate[m.Date], m)
	}
	for date := range byDate {
		sortMeetings(byDate[date], true)
	}

	return func(yield func(model.LectureConflict) bool) {
		for i := range sorted {
			c, ok := conflictForSlot(&sorted[i], byDate[sorted[i].Date], index)
			if !ok {
				continue
			}
			if !yield(c) {
				return
			}
		}
	}
}

// conflictForSlot 汇总单个课程时段上的冲突
func conflictForSlot(slot *model.LectureSlot, sameDay []model.Meeting, index RecordIndex) (model.LectureConflict, bool) {
	c := model.LectureConflict{
		ConflictID:  slot.LectureSlotID,
		SubjectCode: slot.SubjectCode,
		SubjectName: slot.SubjectName,
		Date:        slot.Date,
		TimeSlot:    slot.TimeSlot(),
	}
	seen := make(map[string]bool)

	for _, m := range sameDay {
		if !model.Overlaps(m.StartTime, m.EndTime, slot.StartTime, slot.EndTime) {
			continue
		}
		contributed := false
		for _, r := range index[m.MeetingID] {
			if !r.Status.CountsAsAttending() || seen[r.StudentID] {
				continue
			}
			seen[r.StudentID] = true
			contributed = true
			c.Affected = append(c.Affected, model.AffectedStudent{
				StudentID: r.StudentID,
				RecordID:  r.RecordID,
				MeetingID: m.MeetingID,
				Status:    r.Status,
			})
		}
		if contributed {
			c.MeetingIDs = append(c.MeetingIDs, m.MeetingID)
		}
	}

	if len(c.Affected) == 0 {
		return model.LectureConflict{}, false
	}
	sort.SliceStable(c.Affected, func(i, j int) bool { return c.Affected[i].StudentID < c.Affected[j].StudentID })
	c.AffectedCount = len(c.Affected)
	return c, true
}

// overlappingMeetings 与课程时段重叠的会议
func overlappingMeetings(slot *model.LectureSlot, meetings []model.Meeting) []model.Meeting {
	var result []model.Meeting
	for _, m := range meetings {
		if m.Date == slot.Date && model.Overlaps(m.StartTime, m.EndTime, slot.StartTime, slot.EndTime) {
			result = append(result, m)
		}
	}
	sortMeetings(result, true)
	return result
}
