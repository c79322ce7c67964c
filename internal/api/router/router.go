package router

import (
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"classpad/config"
	"classpad/internal/api/handler"
	"classpad/internal/api/middleware"
	"classpad/internal/model"
	"classpad/pkg/metrics"
)

// 登录与注册的限流参数（按 IP）
const (
	authRateLimit  = 10
	authRateWindow = time.Minute
)

// Deps 路由依赖；Limiter 为 nil 时不限流
type Deps struct {
	Handler  *handler.Handler
	Resolver middleware.IdentityResolver
	Limiter  middleware.RateLimiter
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, d Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	h := d.Handler

	uploads := ""
	if cfg.Storage.Driver == "local" {
		uploads = uploadsPath(cfg.Storage.Local.PublicURL)
	}

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(d.Logger, "/health", "/metrics"))
	r.Use(middleware.Metrics(d.Metrics))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.SecurityHeaders(uploads))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查与指标 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	// ── 本地存储静态文件 ──
	if uploads != "" {
		r.Static(uploads, cfg.Storage.Local.Dir)
	}

	authLimit := middleware.RateLimit(d.Limiter, authRateLimit, authRateWindow)
	scanLimit := middleware.RateLimit(d.Limiter, cfg.Attendance.ScanRateLimit, cfg.Attendance.ScanRateWindow)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/register", authLimit, h.Auth.Register)
			auth.POST("/login", authLimit, h.Auth.Login)
			auth.POST("/oauth/:provider", authLimit, h.Auth.OAuthLogin)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(d.Resolver))
		{
			// 认证模块（需要认证）
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.User.GetCurrentUser)
			authorized.PUT("/auth/password", h.Auth.ChangePassword)

			// 用户模块
			users := authorized.Group("/users")
			{
				users.GET("/me", h.User.GetCurrentUser)
				users.PUT("/me", h.User.UpdateCurrentUser)
				users.GET("/me/statistics", h.User.GetStatistics)
				users.GET("", middleware.RoleAuth(model.RoleAdmin), h.User.ListUsers)
				users.GET("/:id", middleware.RoleAuth(model.RoleAdmin), h.User.GetUser)
				users.PUT("/:id/active", middleware.RoleAuth(model.RoleAdmin), h.User.SetActive)
				users.DELETE("/:id", middleware.RoleAuth(model.RoleAdmin), h.User.DeleteUser)
			}

			// 课程模块（课程内角色由 Service 层鉴权）
			courses := authorized.Group("/courses")
			{
				courses.GET("", h.Course.ListMine)
				courses.POST("", middleware.RoleAuth(model.RoleTeacher, model.RoleAdmin), h.Course.Create)
				courses.POST("/join", h.Course.Join)
				courses.GET("/:id", h.Course.Get)
				courses.PUT("/:id", h.Course.Update)
				courses.DELETE("/:id", h.Course.Delete)
				courses.POST("/:id/code", h.Course.RegenerateCode)
				courses.POST("/:id/leave", h.Course.Leave)
				courses.GET("/:id/members", h.Course.Members)
				courses.POST("/:id/teachers", h.Course.AddTeacher)
				courses.DELETE("/:id/teachers/:userId", h.Course.RemoveTeacher)
				courses.DELETE("/:id/students/:userId", h.Course.RemoveStudent)
				courses.POST("/:id/students/import", h.Course.ImportRoster)

				courses.GET("/:id/units", h.Unit.List)
				courses.POST("/:id/units", h.Unit.Create)
				courses.PUT("/:id/units/order", h.Unit.Reorder)

				courses.GET("/:id/assignments", h.Assignment.List)
				courses.POST("/:id/assignments", h.Assignment.Create)

				courses.GET("/:id/messages", h.Message.List)
				courses.POST("/:id/messages", h.Message.Create)

				courses.GET("/:id/attendance/sessions", h.Attendance.ListSessions)
				courses.POST("/:id/attendance/sessions", h.Attendance.CreateSession)
				courses.GET("/:id/attendance/me", h.Attendance.MyAttendance)

				courses.GET("/:id/export/grades", h.Export.ExportGrades)
				courses.GET("/:id/export/attendance", h.Export.ExportAttendance)
				courses.GET("/:id/calendar.ics", h.Export.ExportCalendar)
			}

			// 单元模块
			units := authorized.Group("/units")
			{
				units.GET("/:id", h.Unit.Get)
				units.PUT("/:id", h.Unit.Update)
				units.DELETE("/:id", h.Unit.Delete)
				units.PUT("/:id/publish", h.Unit.SetPublished)
				units.GET("/:id/materials", h.Unit.ListMaterials)
				units.POST("/:id/materials", h.Unit.AddMaterial)
				units.DELETE("/:id/materials/:materialId", h.Unit.DeleteMaterial)
			}

			// 作业模块
			assignments := authorized.Group("/assignments")
			{
				assignments.GET("/:id", h.Assignment.Get)
				assignments.PUT("/:id", h.Assignment.Update)
				assignments.DELETE("/:id", h.Assignment.Delete)
				assignments.PUT("/:id/publish", h.Assignment.SetPublished)
				assignments.GET("/:id/attachments", h.Assignment.ListAttachments)
				assignments.POST("/:id/attachments", h.Assignment.AddAttachment)
				assignments.DELETE("/:id/attachments/:attachmentId", h.Assignment.DeleteAttachment)
				assignments.GET("/:id/submission", h.Assignment.GetMySubmission)
				assignments.PUT("/:id/submission", h.Assignment.SaveDraft)
				assignments.POST("/:id/submit", h.Assignment.Submit)
				assignments.GET("/:id/submissions", h.Assignment.ListSubmissions)
			}

			// 提交模块
			submissions := authorized.Group("/submissions")
			{
				submissions.GET("/:id", h.Submission.Get)
				submissions.PUT("/:id/grade", h.Submission.Grade)
				submissions.POST("/:id/files", h.Submission.AddFile)
				submissions.DELETE("/:id/files/:fileId", h.Submission.DeleteFile)
			}

			// 签到模块
			attendance := authorized.Group("/attendance")
			{
				attendance.POST("/scan", scanLimit, h.Attendance.Scan)
				attendance.PUT("/sessions/:id/deactivate", h.Attendance.Deactivate)
				attendance.GET("/sessions/:id/records", h.Attendance.ListRecords)
				attendance.PUT("/sessions/:id/records", h.Attendance.ManualRecord)
			}

			// 消息与评论
			authorized.DELETE("/messages/:id", h.Message.Delete)
			authorized.GET("/messages/:id/comments", h.Message.ListComments)
			authorized.POST("/messages/:id/comments", h.Message.AddComment)
			authorized.DELETE("/comments/:id", h.Message.DeleteComment)

			// 通知模块
			notifications := authorized.Group("/notifications")
			{
				notifications.GET("", h.Notification.List)
				notifications.GET("/unread-count", h.Notification.UnreadCount)
				notifications.PUT("/read-all", h.Notification.MarkAllRead)
				notifications.PUT("/:id/read", h.Notification.MarkRead)
				notifications.DELETE("/:id", h.Notification.Delete)
			}
		}
	}

	return r
}

// uploadsPath 从本地存储的公开 URL 中取出挂载路径
func uploadsPath(publicURL string) string {
	u, err := url.Parse(publicURL)
	if err != nil || u.Path == "" || u.Path == "/" {
		return "/uploads"
	}
	return u.Path
}
