package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/mkpublisher/showcase/internal/logging"
	"github.com/mkpublisher/showcase/internal/projects/domain"
	"github.com/mkpublisher/showcase/internal/remote"
)

// Applier receives created projects so the local catalog shows them without
// waiting for the push channel.
type Applier interface {
	Apply(p remote.Project) bool
}

// Service handles project submission
type Service struct {
	projects remote.Projects
	catalog  Applier
}

func New(projects remote.Projects, catalog Applier) *Service {
	return &Service{projects: projects, catalog: catalog}
}

// Submit inserts one project for user. Without a user nothing is sent to the
// backend. There is no duplicate check.
func (s *Service) Submit(ctx context.Context, user *remote.User, accessToken string, sub domain.Submission) (*remote.Project, error) {
	if user == nil || user.ID == "" {
		return nil, domain.ErrSignInRequired
	}

	sub = sub.Normalize()
	if err := sub.Validate(); err != nil {
		return nil, err
	}

	created, err := s.projects.Insert(ctx, accessToken, sub.Record(user.ID))
	if err != nil {
		logging.NewLogger(ctx).LogError("projects.submit", err)
		return nil, fmt.Errorf("%w: %w", domain.ErrCreateFailed, err)
	}

	if s.catalog != nil && !s.catalog.Apply(*created) {
		logging.FromContext(ctx).WithFields(logrus.Fields{"project_id": created.ID}).
			Debug("created project already delivered by push")
	}
	return created, nil
}
