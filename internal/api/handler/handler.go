package handler

import "classpad/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth         *AuthHandler
	User         *UserHandler
	Course       *CourseHandler
	Unit         *UnitHandler
	Assignment   *AssignmentHandler
	Submission   *SubmissionHandler
	Attendance   *AttendanceHandler
	Message      *MessageHandler
	Notification *NotificationHandler
	Export       *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:         NewAuthHandler(svc.Auth),
		User:         NewUserHandler(svc.User, svc.Statistics),
		Course:       NewCourseHandler(svc.Course),
		Unit:         NewUnitHandler(svc.Unit),
		Assignment:   NewAssignmentHandler(svc.Assignment, svc.Submission),
		Submission:   NewSubmissionHandler(svc.Submission),
		Attendance:   NewAttendanceHandler(svc.Attendance),
		Message:      NewMessageHandler(svc.Message),
		Notification: NewNotificationHandler(svc.Notification),
		Export:       NewExportHandler(svc.Export),
	}
}
