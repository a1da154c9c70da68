package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/krrishnaik/Markly/config"
	"github.com/krrishnaik/Markly/internal/api/handler"
	"github.com/krrishnaik/Markly/internal/api/middleware"
	"github.com/krrishnaik/Markly/internal/dto"
	"github.com/krrishnaik/Markly/internal/model"
	"github.com/krrishnaik/Markly/pkg/jwt"
	"github.com/krrishnaik/Markly/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	// 请求 DTO 使用 hhmm / isodate 标签，绑定前必须注册
	if err := dto.RegisterValidators(); err != nil {
		logger.Error("注册自定义校验标签失败", zap.Error(err))
	}

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	if cfg.Server.MaxBodyBytes > 0 {
		r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))
	}

	// ── 健康检查 / 指标 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	student := middleware.RoleAuth(model.RoleStudent)
	lead := middleware.RoleAuth(model.RoleLead)
	faculty := middleware.RoleAuth(model.RoleFaculty)
	staff := middleware.RoleAuth(model.RoleLead, model.RoleFaculty)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			rl := cfg.Server.RateLimit
			auth.POST("/login", middleware.RateLimit(rdb, "login", rl.Limit, rl.Window), h.Auth.Login)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb))
		{
			// 认证模块（需要认证）
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.Me)

			// 社团与公告
			clubs := authorized.Group("/clubs")
			{
				clubs.GET("", h.Club.List)
				clubs.GET("/:id", h.Club.Get)
				clubs.POST("/:id/announcements", lead, h.Club.CreateAnnouncement)
			}
			authorized.GET("/announcements", h.Club.ListAnnouncements)

			// 会议模块
			meetings := authorized.Group("/meetings")
			{
				meetings.POST("", lead, h.Meeting.Create)
				meetings.GET("", h.Meeting.List)
				meetings.GET("/upcoming", h.Meeting.Upcoming)
				meetings.GET("/past", h.Meeting.Past)
				meetings.GET("/:id", h.Meeting.Get)
				meetings.POST("/:id/complete", lead, h.Meeting.Complete)
				meetings.POST("/:id/finalize", lead, h.Meeting.Finalize)
				meetings.POST("/:id/roster", lead, h.Meeting.OpenRoster)
				meetings.GET("/:id/attendance", staff, h.Meeting.Attendance)
				meetings.GET("/:id/summary", staff, h.Meeting.Summary)
				meetings.GET("/:id/export", staff, h.Export.ExportMeetingAttendance)
				meetings.POST("/:id/declare", student, h.Attendance.Declare)
			}

			// 考勤模块
			attendance := authorized.Group("/attendance")
			{
				attendance.GET("/me", student, h.Attendance.Mine)
				attendance.GET("/history", student, h.Attendance.History)
				attendance.GET("/summary", student, h.Attendance.Summary)
				attendance.PUT("/:id/decision", lead, h.Attendance.Decide)
				attendance.PUT("/:id/excuse", faculty, h.Attendance.Excuse)
			}

			// 课程时段
			lectures := authorized.Group("/lectures")
			{
				lectures.GET("", staff, h.Lecture.List)
				lectures.POST("", faculty, h.Lecture.Create)
				irl := cfg.Server.ImportRateLimit
				lectures.POST("/import", faculty, middleware.RateLimit(rdb, "ics_import", irl.Limit, irl.Window), h.Lecture.Import)
			}

			// 课程冲突（教师）
			conflicts := authorized.Group("/conflicts", faculty)
			{
				conflicts.GET("", h.Conflict.ListPending)
				conflicts.POST("/:id/resolve", h.Conflict.Resolve)
				conflicts.GET("/:id/resolutions", h.Conflict.ListResolved)
			}
		}
	}

	return r
}
