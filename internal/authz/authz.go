// Package authz decides who may read or change projects and tasks.
//
// Tasks carry no ACL of their own: access to a task is access to its
// project. Project reads are open to the owner and members, project writes
// to the owner only, and task writes to anyone who can read the project.
//
// The guards assume the resource has already been loaded; a missing
// resource is reported as NotFound by the caller before any guard runs.
package authz

import (
	"projectmanager/internal/apperr"
	"projectmanager/internal/models"
)

// CanAccessProject reports whether id is the owner or a member of p.
func CanAccessProject(id models.Identity, p models.Project) bool {
	if id.ID == "" {
		return false
	}
	return p.IsOwner(id.ID) || p.HasMember(id.ID)
}

// CanAccessTask reports whether t belongs to p and id can access p.
func CanAccessTask(id models.Identity, t models.Task, p models.Project) bool {
	if t.ProjectID != p.ID {
		return false
	}
	return CanAccessProject(id, p)
}

// CanMutateProject reports whether id owns p.
func CanMutateProject(id models.Identity, p models.Project) bool {
	return id.ID != "" && p.IsOwner(id.ID)
}

// CanMutateTask grants task writes to every project member, not only the
// project owner.
func CanMutateTask(id models.Identity, t models.Task, p models.Project) bool {
	return CanAccessTask(id, t, p)
}

// RequireIdentity fails with Unauthenticated when no caller is known.
func RequireIdentity(id models.Identity) error {
	if id.ID == "" {
		return apperr.Unauthenticated("Unauthorized")
	}
	return nil
}

// RequireProjectAccess fails unless id can read p.
func RequireProjectAccess(id models.Identity, p models.Project) error {
	if err := RequireIdentity(id); err != nil {
		return err
	}
	if !CanAccessProject(id, p) {
		return apperr.Forbidden("You do not have access to this project")
	}
	return nil
}

// RequireProjectOwner fails unless id owns p. action names the attempted change.
func RequireProjectOwner(id models.Identity, p models.Project, action string) error {
	if err := RequireIdentity(id); err != nil {
		return err
	}
	if !CanMutateProject(id, p) {
		return apperr.Forbidden("Only the project owner can " + action + " it")
	}
	return nil
}

// RequireTaskAccess fails unless id can read t.
func RequireTaskAccess(id models.Identity, t models.Task, p models.Project) error {
	if err := RequireIdentity(id); err != nil {
		return err
	}
	if !CanAccessTask(id, t, p) {
		return apperr.Forbidden("You do not have access to this task")
	}
	return nil
}

// RequireTaskMutation fails unless id may change t.
func RequireTaskMutation(id models.Identity, t models.Task, p models.Project) error {
	if err := RequireIdentity(id); err != nil {
		return err
	}
	if !CanMutateTask(id, t, p) {
		return apperr.Forbidden("You do not have permission to modify this task")
	}
	return nil
}

// RequireAdmin fails unless id has the admin role.
func RequireAdmin(id models.Identity) error {
	if err := RequireIdentity(id); err != nil {
		return err
	}
	if !id.IsAdmin() {
		return apperr.Forbidden("Admin access required")
	}
	return nil
}
