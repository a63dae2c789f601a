package models

import (
	"slices"
	"time"
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// DefaultProjectColor is used when a project is created without a color.
const DefaultProjectColor = "#4F46E5"

// Identity is the caller resolved from a request token.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

type User struct {
	ID           string    `json:"id" bson:"_id"`
	Email        string    `json:"email" bson:"email"`
	Name         string    `json:"name" bson:"name"`
	Role         Role      `json:"role" bson:"role"`
	PasswordHash string    `json:"-" bson:"password"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"`
}

// UserSummary is the projection of a user that may be embedded in other
// resources. It never carries the credential.
type UserSummary struct {
	ID    string `json:"id" bson:"_id"`
	Name  string `json:"name" bson:"name"`
	Email string `json:"email" bson:"email"`
}

func (u User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
}

type Project struct {
	ID          string    `json:"id" bson:"_id"`
	Name        string    `json:"name" bson:"name"`
	Description string    `json:"description" bson:"description"`
	OwnerID     string    `json:"owner_id" bson:"owner"`
	MemberIDs   []string  `json:"member_ids" bson:"members"`
	StartDate   time.Time `json:"start_date" bson:"start_date"`
	EndDate     time.Time `json:"end_date" bson:"end_date"`
	Color       string    `json:"color" bson:"color"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}

func (p Project) IsOwner(userID string) bool { return p.OwnerID == userID }

func (p Project) HasMember(userID string) bool { return slices.Contains(p.MemberIDs, userID) }

type Task struct {
	ID           string     `json:"id" bson:"_id"`
	Title        string     `json:"title" bson:"title"`
	Description  string     `json:"description" bson:"description"`
	ProjectID    string     `json:"project_id" bson:"project"`
	ParentTaskID *string    `json:"parent_task_id" bson:"parent_task"`
	AssignedToID *string    `json:"assigned_to_id" bson:"assigned_to"`
	ReviewedByID *string    `json:"reviewed_by_id" bson:"reviewed_by"`
	Priority     Priority   `json:"priority" bson:"priority"`
	Status       Status     `json:"status" bson:"status"`
	StartDate    time.Time  `json:"start_date" bson:"start_date"`
	DueDate      time.Time  `json:"due_date" bson:"due_date"`
	CompletedAt  *time.Time `json:"completed_at" bson:"completed_at"`
	// Seq orders tasks by insertion; assigned by the store.
	Seq       int64     `json:"-" bson:"seq"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

func (t Task) IsRoot() bool { return t.ParentTaskID == nil }

type ColorPalette struct {
	ProjectColors []string          `json:"project_colors" bson:"project_colors"`
	TaskColors    map[string]string `json:"task_colors" bson:"task_colors"`
}

type Settings struct {
	ID                   string       `json:"id" bson:"_id"`
	UserID               string       `json:"user_id" bson:"user"`
	Theme                string       `json:"theme" bson:"theme"`
	Language             string       `json:"language" bson:"language"`
	NotificationsEnabled bool         `json:"notifications_enabled" bson:"notifications_enabled"`
	ColorPalette         ColorPalette `json:"color_palette" bson:"color_palette"`
	CreatedAt            time.Time    `json:"created_at" bson:"created_at"`
	UpdatedAt            time.Time    `json:"updated_at" bson:"updated_at"`
}

func DefaultProjectColors() []string {
	return []string{"#4F46E5", "#10B981", "#F59E0B", "#EF4444", "#8B5CF6", "#EC4899", "#06B6D4"}
}

func DefaultTaskColors() map[string]string {
	return map[string]string{
		string(PriorityLow):    "#10B981",
		string(PriorityMedium): "#F59E0B",
		string(PriorityHigh):   "#EF4444",
	}
}

// DefaultSettings returns the settings a user starts with. The ID is left
// for the caller to assign.
func DefaultSettings(userID string, now time.Time) Settings {
	return Settings{
		UserID:               userID,
		Theme:                "system",
		Language:             "en",
		NotificationsEnabled: true,
		ColorPalette: ColorPalette{
			ProjectColors: DefaultProjectColors(),
			TaskColors:    DefaultTaskColors(),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}
