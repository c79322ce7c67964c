package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"classpad/internal/model"
	"classpad/internal/repository"
)

// ── 导出模块业务错误 ──

var ErrExportGenerateFail = errors.New("生成导出文件失败")

// ExportService 导出业务接口
//
// 成绩册与签到表导出为 Excel (.xlsx)，课程日历导出为 iCalendar (.ics)。
// 导出以 bytes.Buffer 返回，由 Handler 层设置响应头后写入。
type ExportService interface {
	// ExportGrades 学生 × 已发布作业 的成绩册
	ExportGrades(ctx context.Context, userID, rawCourseID string) (*bytes.Buffer, string, error)
	// ExportAttendance 学生 × 签到场次 的签到表
	ExportAttendance(ctx context.Context, userID, rawCourseID string) (*bytes.Buffer, string, error)
	// ExportCalendar 已发布且有截止时间的作业
	ExportCalendar(ctx context.Context, userID, rawCourseID string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo    *repository.Repository
	access  AccessService
	baseURL string
	clock   clock
	logger  *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, access AccessService, baseURL string, logger *zap.Logger) ExportService {
	return &exportService{
		repo:    repo,
		access:  access,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

var submissionStatusText = map[string]string{
	model.SubmissionDraft:     "草稿",
	model.SubmissionSubmitted: "已提交",
	model.SubmissionGraded:    "已评分",
}

var attendanceStatusText = map[string]string{
	model.AttendancePresent: "出勤",
	model.AttendanceLate:    "迟到",
	model.AttendanceAbsent:  "缺勤",
}

// ═══════════════════════════════════════════════════════════
// ExportGrades 成绩册
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet "成绩册"
//   - 列：姓名 | 邮箱 | 作业1 (满分) | 作业2 (满分) | ... | 平均得分率
//   - 单元格：已评分显示分数，否则显示提交状态，未提交显示 "-"

func (s *exportService) ExportGrades(ctx context.Context, userID, rawCourseID string) (*bytes.Buffer, string, error) {
	access, err := s.access.ResolveCourse(ctx, userID, rawCourseID)
	if err != nil {
		return nil, "", err
	}
	if err := access.RequireTeacher(); err != nil {
		return nil, "", err
	}
	course := access.Course

	students, err := s.repo.Enrollment.ListActiveByCourse(ctx, course.CourseID)
	if err != nil {
		s.logger.Error("查询课程学生失败", zap.String("course_id", course.CourseID), zap.Error(err))
		return nil, "", err
	}
	assignments, err := s.repo.Assignment.ListByCourse(ctx, course.CourseID, repository.AssignmentFilter{PublishedOnly: true})
	if err != nil {
		s.logger.Error("查询作业失败", zap.String("course_id", course.CourseID), zap.Error(err))
		return nil, "", err
	}
	submissions, err := s.repo.Submission.ListByCourse(ctx, course.CourseID)
	if err != nil {
		s.logger.Error("查询提交记录失败", zap.String("course_id", course.CourseID), zap.Error(err))
		return nil, "", err
	}

	// "assignmentID:studentID" → submission
	index := make(map[string]*model.Submission, len(submissions))
	for i := range submissions {
		sub := &submissions[i]
		index[sub.AssignmentID+":"+sub.StudentID] = sub
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "成绩册"
	s.prepareSheet(f, sheet, 2+len(assignments)+1)

	header := []interface{}{"姓名", "邮箱"}
	for _, a := range assignments {
		header = append(header, fmt.Sprintf("%s (%g)", a.Title, a.MaxPoints))
	}
	header = append(header, "平均得分率")
	s.writeHeader(f, sheet, header)

	for r, e := range students {
		name, email := e.StudentID, ""
		if e.Student != nil {
			name, email = e.Student.Name, e.Student.Email
		}
		row := []interface{}{name, email}

		var percentSum float64
		graded := 0
		for _, a := range assignments {
			sub, ok := index[a.AssignmentID+":"+e.StudentID]
			switch {
			case !ok:
				row = append(row, "-")
			case sub.Grade != nil && sub.Status == model.SubmissionGraded:
				row = append(row, *sub.Grade)
				if a.MaxPoints > 0 {
					percentSum += *sub.Grade / a.MaxPoints * 100
					graded++
				}
			default:
				text := submissionStatusText[sub.Status]
				if sub.SubmittedLate {
					text += "（迟交）"
				}
				row = append(row, text)
			}
		}
		if graded > 0 {
			row = append(row, fmt.Sprintf("%.2f%%", percentSum/float64(graded)))
		} else {
			row = append(row, "-")
		}
		s.writeRow(f, sheet, r+2, row)
	}

	return s.finish(f, fmt.Sprintf("成绩册_%s.xlsx", course.Name))
}

// ═══════════════════════════════════════════════════════════
// ExportAttendance 签到表
// ═══════════════════════════════════════════════════════════
//
// 列：姓名 | 邮箱 | 场次1 | 场次2 | ... | 出勤 | 迟到 | 缺勤

func (s *exportService) ExportAttendance(ctx context.Context, userID, rawCourseID string) (*bytes.Buffer, string, error) {
	access, err := s.access.ResolveCourse(ctx, userID, rawCourseID)
	if err != nil {
		return nil, "", err
	}
	if err := access.RequireTeacher(); err != nil {
		return nil, "", err
	}
	course := access.Course

	students, err := s.repo.Enrollment.ListActiveByCourse(ctx, course.CourseID)
	if err != nil {
		s.logger.Error("查询课程学生失败", zap.String("course_id", course.CourseID), zap.Error(err))
		return nil, "", err
	}
	sessions, err := s.repo.Attendance.ListSessionsByCourse(ctx, course.CourseID)
	if err != nil {
		s.logger.Error("查询签到场次失败", zap.String("course_id", course.CourseID), zap.Error(err))
		return nil, "", err
	}
	records, err := s.repo.Attendance.ListRecordsByCourse(ctx, course.CourseID)
	if err != nil {
		s.logger.Error("查询签到记录失败", zap.String("course_id", course.CourseID), zap.Error(err))
		return nil, "", err
	}

	index := make(map[string]string, len(records))
	for _, rec := range records {
		index[rec.SessionID+":"+rec.StudentID] = rec.Status
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "签到表"
	s.prepareSheet(f, sheet, 2+len(sessions)+3)

	header := []interface{}{"姓名", "邮箱"}
	for _, ss := range sessions {
		title := ss.Title
		if title == "" {
			title = "签到"
		}
		header = append(header, fmt.Sprintf("%s %s", title, ss.StartTime.Format("01-02 15:04")))
	}
	header = append(header, "出勤", "迟到", "缺勤")
	s.writeHeader(f, sheet, header)

	for r, e := range students {
		name, email := e.StudentID, ""
		if e.Student != nil {
			name, email = e.Student.Name, e.Student.Email
		}
		row := []interface{}{name, email}

		counts := make(map[string]int, 3)
		for _, ss := range sessions {
			status, ok := index[ss.SessionID+":"+e.StudentID]
			if !ok {
				row = append(row, "-")
				continue
			}
			counts[status]++
			row = append(row, attendanceStatusText[status])
		}
		row = append(row,
			counts[model.AttendancePresent],
			counts[model.AttendanceLate],
			counts[model.AttendanceAbsent],
		)
		s.writeRow(f, sheet, r+2, row)
	}

	return s.finish(f, fmt.Sprintf("签到表_%s.xlsx", course.Name))
}

// ═══════════════════════════════════════════════════════════
// ExportCalendar 课程日历
// ═══════════════════════════════════════════════════════════
//
// 每个有截止时间的已发布作业生成一个 VEVENT，开始与结束均为截止时间。

func (s *exportService) ExportCalendar(ctx context.Context, userID, rawCourseID string) (*bytes.Buffer, string, error) {
	access, err := s.access.ResolveCourse(ctx, userID, rawCourseID)
	if err != nil {
		return nil, "", err
	}
	course := access.Course

	assignments, err := s.repo.Assignment.ListByCourse(ctx, course.CourseID, repository.AssignmentFilter{PublishedOnly: true})
	if err != nil {
		s.logger.Error("查询作业失败", zap.String("course_id", course.CourseID), zap.Error(err))
		return nil, "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//ClassPad//Course Calendar//ZH")
	cal.SetXWRCalName(course.Name)

	now := s.clock.now()
	for _, a := range assignments {
		if a.DueAt == nil {
			continue
		}
		ev := cal.AddEvent(a.AssignmentID + "@classpad")
		ev.SetDtStampTime(now)
		ev.SetCreatedTime(a.CreatedAt)
		ev.SetModifiedAt(a.UpdatedAt)
		ev.SetStartAt(*a.DueAt)
		ev.SetEndAt(*a.DueAt)
		ev.SetSummary(fmt.Sprintf("[%s] %s 截止", course.Name, a.Title))
		if a.Description != "" {
			ev.SetDescription(a.Description)
		}
		if s.baseURL != "" {
			ev.SetURL(fmt.Sprintf("%s/assignments/%s", s.baseURL, a.AssignmentID))
		}
	}

	buf := bytes.NewBufferString(cal.Serialize())
	return buf, fmt.Sprintf("%s.ics", course.Name), nil
}

// ── 辅助函数 ──

func (s *exportService) prepareSheet(f *excelize.File, sheet string, cols int) {
	idx, _ := f.NewSheet(sheet)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheet, "A", "A", 14)
	f.SetColWidth(sheet, "B", "B", 28)
	if cols > 2 {
		f.SetColWidth(sheet, colName(2), colName(cols-1), 16)
	}
}

func (s *exportService) writeHeader(f *excelize.File, sheet string, header []interface{}) {
	style, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	})
	s.writeRow(f, sheet, 1, header)
	f.SetCellStyle(sheet, cell("A", 1), cell(colName(len(header)-1), 1), style)
}

func (s *exportService) writeRow(f *excelize.File, sheet string, row int, values []interface{}) {
	for i, v := range values {
		f.SetCellValue(sheet, cell(colName(i), row), v)
	}
}

func (s *exportService) finish(f *excelize.File, filename string) (*bytes.Buffer, string, error) {
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	return buf, filename, nil
}

// colName 0 起始的列序号转 Excel 列名
func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
