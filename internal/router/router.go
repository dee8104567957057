// Package router assembles the gin engine and the /api-v1 route table.
package router

import (
	"log/slog"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/project-management-api/internal/auth"
	"github.com/yukikurage/project-management-api/internal/constants"
	"github.com/yukikurage/project-management-api/internal/handlers"
	"github.com/yukikurage/project-management-api/internal/metrics"
	"github.com/yukikurage/project-management-api/internal/middleware"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/services"
)

// Options carries everything the route table depends on.
type Options struct {
	Log          *slog.Logger
	Verbose      bool
	FrontendURL  string
	SessionStore sessions.Store
	JWT          *auth.JWTService
	Limiter      *middleware.RateLimiter

	Auth       *services.AuthService
	Workspaces *services.WorkspaceService
	Projects   *services.ProjectService
	Tasks      *services.TaskService
	Stats      *services.StatsService
}

// New returns a gin engine with middleware and all routes registered.
func New(opts Options) *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.Recovery(opts.Log),
		middleware.RequestLogger(opts.Log, opts.Verbose),
		middleware.Prometheus(),
		middleware.CORS(opts.FrontendURL),
		sessions.Sessions(constants.SessionCookieName, opts.SessionStore),
	)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Project Management API is running",
		})
	})
	r.GET("/metrics", metrics.Handler())

	authHandler := handlers.NewAuthHandler(opts.Auth)
	workspaceHandler := handlers.NewWorkspaceHandler(opts.Workspaces, opts.Stats)
	projectHandler := handlers.NewProjectHandler(opts.Projects)
	taskHandler := handlers.NewTaskHandler(opts.Tasks)

	requireAuth := middleware.RequireAuth(opts.JWT)
	limit := middleware.RateLimit(opts.Limiter)
	member := middleware.RequireWorkspaceMember(opts.Workspaces)
	manager := middleware.RequireWorkspaceRole(models.RoleOwner, models.RoleAdmin)

	api := r.Group("/api-v1")
	{
		authRoutes := api.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", limit, authHandler.Login)
			authRoutes.POST("/logout", authHandler.Logout)
			authRoutes.GET("/me", requireAuth, authHandler.Me)
		}

		workspaces := api.Group("/workspaces")
		workspaces.Use(requireAuth)
		{
			workspaces.POST("", workspaceHandler.CreateWorkspace)
			workspaces.GET("", workspaceHandler.ListWorkspaces)
			workspaces.POST("/accept-invite", limit, workspaceHandler.AcceptInvite)
			workspaces.POST("/join", limit, workspaceHandler.JoinByInviteCode)

			// Callers are not members yet.
			workspaces.POST("/:workspaceId/accept-generate-invite", limit, workspaceHandler.AcceptGeneratedInvite)

			ws := workspaces.Group("/:workspaceId", member)
			{
				ws.GET("", workspaceHandler.GetWorkspace)
				ws.PUT("", workspaceHandler.UpdateWorkspace)
				ws.DELETE("", workspaceHandler.DeleteWorkspace)
				ws.GET("/stats", workspaceHandler.GetStats)
				ws.GET("/projects", projectHandler.ListProjects)
				ws.POST("/projects", projectHandler.CreateProject)
				ws.POST("/leave", workspaceHandler.LeaveWorkspace)

				ws.POST("/generate-invite-link", manager, workspaceHandler.GenerateInviteLink)
				ws.GET("/invite-link", manager, workspaceHandler.GetInviteLink)
				ws.PUT("/invite-link", manager, workspaceHandler.EnableInviteLink)
				ws.DELETE("/invite-link", manager, workspaceHandler.DisableInviteLink)
				ws.PUT("/members/:userId/role", manager, workspaceHandler.ChangeMemberRole)
				ws.DELETE("/members/:userId", manager, workspaceHandler.RemoveMember)
			}
		}

		projects := api.Group("/projects")
		projects.Use(requireAuth)
		{
			projects.GET("/:projectId", projectHandler.GetProject)
			projects.PUT("/:projectId", projectHandler.UpdateProject)
			projects.GET("/:projectId/tasks", taskHandler.ListTasks)
			projects.POST("/:projectId/tasks", taskHandler.CreateTask)
			projects.POST("/:projectId/tasks/generate", taskHandler.GenerateTasks)
		}

		tasks := api.Group("/tasks")
		tasks.Use(requireAuth)
		{
			tasks.GET("/:taskId", taskHandler.GetTask)
			tasks.PATCH("/:taskId", taskHandler.UpdateTask)
			tasks.POST("/:taskId/archive", taskHandler.ArchiveTask)
			tasks.POST("/:taskId/assign", taskHandler.AssignTask)
			tasks.POST("/:taskId/unassign", taskHandler.UnassignTask)
			tasks.POST("/:taskId/watch", taskHandler.WatchTask)
			tasks.DELETE("/:taskId/watch", taskHandler.UnwatchTask)
			tasks.POST("/:taskId/subtasks", taskHandler.AddSubtask)
			tasks.PATCH("/:taskId/subtasks/:subtaskId", taskHandler.UpdateSubtask)
			tasks.GET("/:taskId/comments", taskHandler.ListComments)
			tasks.POST("/:taskId/comments", taskHandler.AddComment)
			tasks.GET("/:taskId/activity", taskHandler.ListActivity)
		}
	}

	return r
}
