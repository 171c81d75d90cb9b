package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"collab-chat-service/internal/models"
)

var ErrProjectNotFound = errors.New("project not found")

// ProjectRepository reads the platform's projects and memberships.
type ProjectRepository interface {
	GetProject(ctx context.Context, projectID int) (models.Project, error)
	IsMember(ctx context.Context, projectID int, userID int) (bool, error)
	ListMembers(ctx context.Context, projectID int) ([]models.ProjectMember, error)
}

// ProjectRepo is a sqlx implementation of ProjectRepository.
type ProjectRepo struct {
	db *sqlx.DB
}

// NewProjectRepo constructs a ProjectRepo.
func NewProjectRepo(db *sqlx.DB) *ProjectRepo {
	return &ProjectRepo{db: db}
}

// GetProject fetches a project by id.
func (r *ProjectRepo) GetProject(ctx context.Context, projectID int) (models.Project, error) {
	var project models.Project
	err := r.db.GetContext(ctx, &project, `SELECT id, title, code, created_at FROM projects WHERE id=$1`, projectID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Project{}, ErrProjectNotFound
	}
	return project, err
}

// IsMember checks project membership.
func (r *ProjectRepo) IsMember(ctx context.Context, projectID int, userID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM memberships WHERE project_id=$1 AND user_id=$2)`, projectID, userID)
	return exists, err
}

// ListMembers returns the project's members with user identity.
func (r *ProjectRepo) ListMembers(ctx context.Context, projectID int) ([]models.ProjectMember, error) {
	var members []models.ProjectMember
	err := r.db.SelectContext(ctx, &members, `SELECT m.user_id, u.email, u.full_name, m.role
        FROM memberships m INNER JOIN users u ON u.id = m.user_id
        WHERE m.project_id=$1 ORDER BY u.full_name`, projectID)
	return members, err
}
