package models

import "time"

// ProjectView is a project with its owner and members resolved.
type ProjectView struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Owner       UserSummary   `json:"owner"`
	Members     []UserSummary `json:"members"`
	StartDate   time.Time     `json:"start_date"`
	EndDate     time.Time     `json:"end_date"`
	Color       string        `json:"color"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

type ProjectRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type TaskRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// TaskView is a task with its references resolved.
type TaskView struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Project     ProjectRef   `json:"project"`
	ParentTask  *TaskRef     `json:"parent_task"`
	AssignedTo  *UserSummary `json:"assigned_to"`
	ReviewedBy  *UserSummary `json:"reviewed_by"`
	Priority    Priority     `json:"priority"`
	Status      Status       `json:"status"`
	StartDate   time.Time    `json:"start_date"`
	DueDate     time.Time    `json:"due_date"`
	CompletedAt *time.Time   `json:"completed_at"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// TaskDetail is a task together with its direct children.
type TaskDetail struct {
	TaskView
	SubTasks []TaskView `json:"sub_tasks"`
}

// Profile is what a user sees about themselves.
type Profile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

func (u User) Profile() Profile {
	return Profile{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

type Stats struct {
	TotalUsers      int64 `json:"total_users"`
	TotalProjects   int64 `json:"total_projects"`
	TotalTasks      int64 `json:"total_tasks"`
	ActiveProjects  int64 `json:"active_projects"`
	CompletedTasks  int64 `json:"completed_tasks"`
	PendingTasks    int64 `json:"pending_tasks"`
	InProgressTasks int64 `json:"in_progress_tasks"`
}

type UserStats struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Role          Role      `json:"role"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	ProjectsCount int64     `json:"projects_count"`
	TasksCount    int64     `json:"tasks_count"`
}

// Timeline is the data behind a project's Gantt chart.
type Timeline struct {
	Project      ProjectRef    `json:"project"`
	StartDate    time.Time     `json:"start_date"`
	EndDate      time.Time     `json:"end_date"`
	DurationDays int           `json:"duration_days"`
	Progress     int           `json:"progress"`
	Bars         []TimelineBar `json:"bars"`
}

type TimelineBar struct {
	TaskID       string   `json:"task_id"`
	Title        string   `json:"title"`
	ParentTaskID *string  `json:"parent_task_id"`
	IsSubtask    bool     `json:"is_subtask"`
	Status       Status   `json:"status"`
	Priority     Priority `json:"priority"`
	OffsetDays   int      `json:"offset_days"`
	DurationDays int      `json:"duration_days"`
	Overdue      bool     `json:"overdue"`
}

type Dashboard struct {
	ProjectsCount   int        `json:"projects_count"`
	TotalTasks      int        `json:"total_tasks"`
	PendingTasks    int        `json:"pending_tasks"`
	InProgressTasks int        `json:"in_progress_tasks"`
	CompletedTasks  int        `json:"completed_tasks"`
	OverdueTasks    int        `json:"overdue_tasks"`
	Progress        int        `json:"progress"`
	AssignedToMe    []TaskView `json:"assigned_to_me"`
}

type EventType string

const (
	EventProjectUpdated EventType = "project.updated"
	EventProjectDeleted EventType = "project.deleted"
	EventTaskCreated    EventType = "task.created"
	EventTaskUpdated    EventType = "task.updated"
	EventTaskDeleted    EventType = "task.deleted"
)

// ProjectEvent is pushed to realtime subscribers of a project after a
// successful change.
type ProjectEvent struct {
	Type      EventType `json:"type"`
	ProjectID string    `json:"project_id"`
	TaskID    string    `json:"task_id,omitempty"`
	ActorID   string    `json:"actor_id"`
	At        time.Time `json:"at"`
	// Audience, when set, lists every user still allowed to follow the
	// project. Subscribers outside it are disconnected.
	Audience []string `json:"-"`
}
