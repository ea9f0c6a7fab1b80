package supabase

import (
	"context"
	"net/http"
	"net/url"

	"github.com/mkpublisher/showcase/internal/remote"
)

const restPrefix = "/rest/v1/"

func eq(v string) string { return "eq." + v }

func returnRepresentation() http.Header {
	return http.Header{"Prefer": {"return=representation"}}
}

// ProjectsTable implements remote.Projects through PostgREST.
type ProjectsTable struct {
	c *Client
}

func (t *ProjectsTable) List(ctx context.Context, accessToken string) ([]remote.Project, error) {
	remote.RecordTableCall()
	var out []remote.Project
	_, err := t.c.do(ctx, request{
		op:     "projects.list",
		method: http.MethodGet,
		path:   restPrefix + remote.TableProjects,
		query:  url.Values{"select": {"*"}, "order": {"created_at.desc"}},
		token:  accessToken,
	}, &out)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []remote.Project{}
	}
	return out, nil
}

func (t *ProjectsTable) Insert(ctx context.Context, accessToken string, p remote.NewProject) (*remote.Project, error) {
	remote.RecordTableCall()
	var out []remote.Project
	_, err := t.c.do(ctx, request{
		op:     "projects.insert",
		method: http.MethodPost,
		path:   restPrefix + remote.TableProjects,
		token:  accessToken,
		body:   []remote.NewProject{p},
		header: returnRepresentation(),
	}, &out)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, &remote.Error{Op: "projects.insert", Status: http.StatusNoContent, Message: "insert returned no row"}
	}
	return &out[0], nil
}

func (t *ProjectsTable) DeleteByUser(ctx context.Context, accessToken, userID string) (int, error) {
	remote.RecordTableCall()
	var out []struct {
		ID string `json:"id"`
	}
	_, err := t.c.do(ctx, request{
		op:     "projects.delete_by_user",
		method: http.MethodDelete,
		path:   restPrefix + remote.TableProjects,
		query:  url.Values{"user_id": {eq(userID)}, "select": {"id"}},
		token:  accessToken,
		header: returnRepresentation(),
	}, &out)
	if err != nil {
		return 0, err
	}
	return len(out), nil
}

// ProfilesTable implements remote.Profiles through PostgREST.
type ProfilesTable struct {
	c *Client
}

func (t *ProfilesTable) Get(ctx context.Context, accessToken, id string) (*remote.Profile, error) {
	remote.RecordTableCall()
	var out []remote.Profile
	_, err := t.c.do(ctx, request{
		op:     "profiles.get",
		method: http.MethodGet,
		path:   restPrefix + remote.TableProfiles,
		query:  url.Values{"id": {eq(id)}, "select": {"*"}},
		token:  accessToken,
	}, &out)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, &remote.Error{Op: "profiles.get", Status: http.StatusNotFound, Message: "profile not found"}
	}
	return &out[0], nil
}

type profileRow struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (t *ProfilesTable) Insert(ctx context.Context, accessToken string, p remote.Profile) error {
	remote.RecordTableCall()
	_, err := t.c.do(ctx, request{
		op:     "profiles.insert",
		method: http.MethodPost,
		path:   restPrefix + remote.TableProfiles,
		token:  accessToken,
		body:   []profileRow{{ID: p.ID, Name: p.Name, Email: p.Email}},
	}, nil)
	return err
}

func (t *ProfilesTable) Update(ctx context.Context, accessToken, id string, u remote.ProfileUpdate) error {
	remote.RecordTableCall()
	_, err := t.c.do(ctx, request{
		op:     "profiles.update",
		method: http.MethodPatch,
		path:   restPrefix + remote.TableProfiles,
		query:  url.Values{"id": {eq(id)}},
		token:  accessToken,
		body:   u,
	}, nil)
	return err
}

func (t *ProfilesTable) Delete(ctx context.Context, accessToken, id string) error {
	remote.RecordTableCall()
	_, err := t.c.do(ctx, request{
		op:     "profiles.delete",
		method: http.MethodDelete,
		path:   restPrefix + remote.TableProfiles,
		query:  url.Values{"id": {eq(id)}},
		token:  accessToken,
	}, nil)
	return err
}
