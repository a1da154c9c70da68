package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/krrishnaik/Markly/internal/model"
	"github.com/krrishnaik/Markly/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// ExportService 导出业务接口
//
// 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response。
type ExportService interface {
	// ExportMeetingAttendance 导出会议考勤表为 Excel
	ExportMeetingAttendance(ctx context.Context, meetingID string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

const attendanceSheet = "Attendance"

// ═══════════════════════════════════════════════════════════
// ExportMeetingAttendance — 导出会议考勤表
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - 第 1 行：社团 / 会议标题 / 日期 时段
//   - 第 2 行：表头
//   - 数据行：按学生 ID 排序（由仓储保证）
//   - 末尾：各状态汇总

func (s *exportService) ExportMeetingAttendance(ctx context.Context, meetingID string) (*bytes.Buffer, string, error) {
	// 1. 查询会议
	meeting, err := s.repo.Meeting.GetByID(ctx, meetingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrMeetingNotFound
		}
		s.logger.Error("查询会议失败", zap.String("meeting_id", meetingID), zap.Error(err))
		return nil, "", err
	}

	// 2. 查询考勤记录（含学生）
	recs, err := s.repo.Attendance.ListByMeeting(ctx, meetingID)
	if err != nil {
		s.logger.Error("查询考勤记录失败", zap.String("meeting_id", meetingID), zap.Error(err))
		return nil, "", err
	}

	// 3. 生成 Excel
	f := excelize.NewFile()
	defer f.Close()

	idx, _ := f.NewSheet(attendanceSheet)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	headers := []string{"Admission No.", "Name", "Branch", "Year", "Status", "Timestamp", "Updated By"}
	f.SetColWidth(attendanceSheet, "A", "A", 16)
	f.SetColWidth(attendanceSheet, "B", "B", 24)
	f.SetColWidth(attendanceSheet, "C", "D", 14)
	f.SetColWidth(attendanceSheet, "E", "E", 14)
	f.SetColWidth(attendanceSheet, "F", "G", 22)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 标题行
	clubName := meeting.ClubID
	if meeting.Club != nil {
		clubName = meeting.Club.Name
	}
	f.SetCellValue(attendanceSheet, "A1", fmt.Sprintf("%s · %s · %s %s-%s",
		clubName, meeting.Title, meeting.Date, meeting.StartTime, meeting.EndTime))
	f.MergeCell(attendanceSheet, "A1", cell(colName(len(headers)-1), 1))
	f.SetCellStyle(attendanceSheet, "A1", "A1", headerStyle)

	// 表头
	for i, h := range headers {
		f.SetCellValue(attendanceSheet, cell(colName(i), 2), h)
	}
	f.SetCellStyle(attendanceSheet, "A2", cell(colName(len(headers)-1), 2), headerStyle)

	// 数据行
	row := 3
	for i := range recs {
		r := &recs[i]
		values := []interface{}{"", r.StudentID, "", "", string(r.Status), "-", r.UpdatedBy}
		if r.Student != nil {
			values[0] = r.Student.AdmissionNumber
			values[1] = r.Student.Name
			values[2] = r.Student.Branch
			values[3] = r.Student.Year
		}
		if r.Timestamp != nil {
			values[5] = r.Timestamp.Format("2006-01-02 15:04")
		}
		for c, v := range values {
			f.SetCellValue(attendanceSheet, cell(colName(c), row), v)
		}
		row++
	}

	// 汇总
	counts := countStatuses(recs)
	row++
	summary := []struct {
		label string
		n     int
	}{
		{string(model.StatusPresent), counts.Present},
		{string(model.StatusAbsent), counts.Absent},
		{string(model.StatusExcused), counts.Excused},
		{string(model.StatusDeclared), counts.Declared},
		{string(model.StatusNotDeclared), counts.NotDeclared},
	}
	for _, item := range summary {
		f.SetCellValue(attendanceSheet, cell("A", row), item.label)
		f.SetCellValue(attendanceSheet, cell("B", row), item.n)
		row++
	}

	// 写入 buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("attendance_%s_%s.xlsx", meeting.Date, meeting.MeetingID)
	return buf, filename, nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
