package dto

import (
	"time"

	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/services"
)

// StatsTotalsDTO holds the headline counters of the dashboard
type StatsTotalsDTO struct {
	TotalProjects           int64 `json:"totalProjects"`
	TotalTasks              int64 `json:"totalTasks"`
	TotalProjectsInProgress int64 `json:"totalProjectsInProgress"`
	TotalTasksCompleted     int64 `json:"totalTasksCompleted"`
	TotalTasksToDo          int64 `json:"totalTasksToDo"`
	TotalTasksInProgress    int64 `json:"totalTasksInProgress"`
}

type StatusCountDTO struct {
	Name  models.ProjectStatus `json:"name"`
	Value int64                `json:"value"`
}

type TrendPointDTO struct {
	Date      string `json:"date"`
	Created   int64  `json:"created"`
	Completed int64  `json:"completed"`
}

type ProjectProgressDTO struct {
	ProjectID  uint64 `json:"projectId"`
	Title      string `json:"title"`
	Total      int64  `json:"total"`
	Completed  int64  `json:"completed"`
	Percentage int    `json:"percentage"`
}

// WorkspaceStatsDTO is the dashboard payload
type WorkspaceStatsDTO struct {
	Stats           StatsTotalsDTO                `json:"stats"`
	TasksByStatus   map[models.TaskStatus]int64   `json:"tasksByStatus"`
	TasksByPriority map[models.TaskPriority]int64 `json:"tasksByPriority"`
	ProjectStatus   []StatusCountDTO              `json:"projectStatus"`
	TaskTrends      []TrendPointDTO               `json:"taskTrends"`
	ProjectProgress []ProjectProgressDTO          `json:"projectProgress"`
	RecentProjects  []ProjectDTO                  `json:"recentProjects"`
	UpcomingTasks   []TaskDTO                     `json:"upcomingTasks"`
}

// ToWorkspaceStatsDTO converts the aggregated dashboard
func ToWorkspaceStatsDTO(s *services.WorkspaceStats) WorkspaceStatsDTO {
	out := WorkspaceStatsDTO{
		Stats:           StatsTotalsDTO(s.Totals),
		TasksByStatus:   s.TasksByStatus,
		TasksByPriority: s.TasksByPriority,
		ProjectStatus:   make([]StatusCountDTO, len(s.ProjectStatus)),
		TaskTrends:      make([]TrendPointDTO, len(s.TaskTrends)),
		ProjectProgress: make([]ProjectProgressDTO, len(s.ProjectProgress)),
		RecentProjects:  ToProjectDTOs(s.RecentProjects),
		UpcomingTasks:   ToTaskDTOs(s.UpcomingTasks),
	}

	for i, sc := range s.ProjectStatus {
		out.ProjectStatus[i] = StatusCountDTO{Name: sc.Name, Value: sc.Value}
	}
	for i, p := range s.TaskTrends {
		out.TaskTrends[i] = TrendPointDTO{Date: p.Date.Format(time.DateOnly), Created: p.Created, Completed: p.Completed}
	}
	for i, p := range s.ProjectProgress {
		out.ProjectProgress[i] = ProjectProgressDTO(p)
	}
	return out
}
