package service

import (
	"go.uber.org/zap"

	"classpad/config"
	"classpad/internal/repository"
	"classpad/pkg/jwt"
	"classpad/pkg/metrics"
	"classpad/pkg/oauth"
	"classpad/pkg/storage"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Access       AccessService
	Auth         AuthService
	User         UserService
	Course       CourseService
	Unit         UnitService
	Assignment   AssignmentService
	Submission   SubmissionService
	Attendance   AttendanceService
	Message      MessageService
	Notification NotificationService
	Export       ExportService
	Statistics   StatisticsService

	// Dispatcher 由 main 负责 Start / Stop
	Dispatcher *Dispatcher
}

// NewService 创建 Service 聚合
// blacklist 可为 nil（Redis 不可用时降级）
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	blacklist TokenBlacklist,
	verifiers map[string]oauth.Verifier,
	store storage.Store,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Service {
	access := NewAccessService(repo, cfg.Membership.LegacyEnrollmentFallback, logger)
	dispatcher := NewDispatcher(cfg.Notification, repo, access, m, logger)
	files := &uploader{
		store:  store,
		policy: storage.NewPolicy(cfg.Storage.MaxFileBytes, cfg.Storage.AllowedMimeTypes),
		logger: logger,
	}

	return &Service{
		Access:       access,
		Auth:         NewAuthService(cfg, repo, jwtMgr, blacklist, verifiers, logger),
		User:         NewUserService(repo, logger),
		Course:       NewCourseService(cfg.Course, cfg.Membership.LegacyEnrollmentFallback, repo, access, dispatcher, logger),
		Unit:         NewUnitService(repo, access, files, dispatcher, logger),
		Assignment:   NewAssignmentService(repo, access, files, dispatcher, logger),
		Submission:   NewSubmissionService(repo, access, files, dispatcher, logger),
		Attendance:   NewAttendanceService(cfg.Attendance, repo, access, dispatcher, m, logger),
		Message:      NewMessageService(repo, access, dispatcher, logger),
		Notification: NewNotificationService(repo, logger),
		Export:       NewExportService(repo, access, cfg.Server.BaseURL, logger),
		Statistics:   NewStatisticsService(repo, logger),
		Dispatcher:   dispatcher,
	}
}
