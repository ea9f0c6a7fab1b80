// Package postgres serves the projects and profiles tables straight from the
// hosted database instead of going through PostgREST.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mkpublisher/showcase/internal/remote"
)

// Tables implements remote.Projects and remote.Profiles over a pgx pool. The
// access token is not used: the pool connects with its own role.
type Tables struct {
	db *pgxpool.Pool
}

func NewTables(db *pgxpool.Pool) *Tables {
	return &Tables{db: db}
}

// Projects returns the projects view of t.
func (t *Tables) Projects() remote.Projects { return projectsTable{t} }

// Profiles returns the profiles view of t.
func (t *Tables) Profiles() remote.Profiles { return profilesTable{t} }

func (t *Tables) record(op string, start time.Time, err error) error {
	remote.RecordTableCall()
	remote.RecordCall(time.Since(start), err)
	if err == nil {
		return nil
	}
	return mapError(op, err)
}

// mapError converts driver errors into remote.Error so callers see the same
// statuses as on the REST path.
func mapError(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return &remote.Error{Op: op, Status: http.StatusNotFound, Message: "no rows returned"}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		status := http.StatusBadRequest
		switch pgErr.Code {
		case "23505":
			status = http.StatusConflict
		case "42501":
			status = http.StatusForbidden
		}
		return &remote.Error{Op: op, Status: status, Code: pgErr.Code, Message: pgErr.Message}
	}
	return fmt.Errorf("%s: %w", op, err)
}

type projectsTable struct{ t *Tables }

const projectColumns = `id::text, title, link, coalesce(image, ''), coalesce(rating, 0)::float8, category, created_at, user_id::text`

func scanProject(row pgx.Row) (remote.Project, error) {
	var p remote.Project
	err := row.Scan(&p.ID, &p.Title, &p.Link, &p.Image, &p.Rating, &p.Category, &p.CreatedAt, &p.UserID)
	return p, err
}

func (pt projectsTable) List(ctx context.Context, _ string) ([]remote.Project, error) {
	start := time.Now()
	rows, err := pt.t.db.Query(ctx, `
select `+projectColumns+`
from projects
order by created_at desc
`)
	if err != nil {
		return nil, pt.t.record("projects.list", start, err)
	}
	defer rows.Close()

	out := []remote.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, pt.t.record("projects.list", start, err)
		}
		out = append(out, p)
	}
	return out, pt.t.record("projects.list", start, rows.Err())
}

func (pt projectsTable) Insert(ctx context.Context, _ string, np remote.NewProject) (*remote.Project, error) {
	if strings.TrimSpace(np.UserID) == "" {
		return nil, fmt.Errorf("user_id required")
	}
	start := time.Now()
	p, err := scanProject(pt.t.db.QueryRow(ctx, `
insert into projects (title, link, image, rating, category, user_id)
values ($1, $2, $3, $4, $5, $6)
returning `+projectColumns,
		np.Title, np.Link, np.Image, np.Rating, np.Category, np.UserID,
	))
	if err != nil {
		return nil, pt.t.record("projects.insert", start, err)
	}
	_ = pt.t.record("projects.insert", start, nil)
	return &p, nil
}

func (pt projectsTable) DeleteByUser(ctx context.Context, _ string, userID string) (int, error) {
	if strings.TrimSpace(userID) == "" {
		return 0, fmt.Errorf("user_id required")
	}
	start := time.Now()
	tag, err := pt.t.db.Exec(ctx, `delete from projects where user_id = $1`, userID)
	if err != nil {
		return 0, pt.t.record("projects.delete_by_user", start, err)
	}
	_ = pt.t.record("projects.delete_by_user", start, nil)
	return int(tag.RowsAffected()), nil
}

type profilesTable struct{ t *Tables }

func (pt profilesTable) Get(ctx context.Context, _ string, id string) (*remote.Profile, error) {
	start := time.Now()
	var p remote.Profile
	err := pt.t.db.QueryRow(ctx, `
select id::text, coalesce(name, ''), coalesce(email, ''), created_at
from profiles
where id = $1
`, id).Scan(&p.ID, &p.Name, &p.Email, &p.CreatedAt)
	if err != nil {
		return nil, pt.t.record("profiles.get", start, err)
	}
	_ = pt.t.record("profiles.get", start, nil)
	return &p, nil
}

func (pt profilesTable) Insert(ctx context.Context, _ string, p remote.Profile) error {
	start := time.Now()
	_, err := pt.t.db.Exec(ctx, `
insert into profiles (id, name, email)
values ($1, nullif($2,''), nullif($3,''))
`, p.ID, p.Name, p.Email)
	return pt.t.record("profiles.insert", start, err)
}

func (pt profilesTable) Update(ctx context.Context, _ string, id string, u remote.ProfileUpdate) error {
	if u.Empty() {
		return nil
	}
	start := time.Now()
	_, err := pt.t.db.Exec(ctx, `
update profiles
set
  name = coalesce($2, name),
  email = coalesce($3, email)
where id = $1
`, id, u.Name, u.Email)
	return pt.t.record("profiles.update", start, err)
}

func (pt profilesTable) Delete(ctx context.Context, _ string, id string) error {
	start := time.Now()
	_, err := pt.t.db.Exec(ctx, `delete from profiles where id = $1`, id)
	return pt.t.record("profiles.delete", start, err)
}
