// Package clients manages a freelancer's client book.
package clients

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/gigdesk-backend/pkg/db/models"
	"github.com/angelmondragon/gigdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gigdesk-backend/pkg/errors"
	"github.com/angelmondragon/gigdesk-backend/pkg/pagination"
)

// QuotaChecker enforces the plan's client allowance.
type QuotaChecker interface {
	CheckCount(ctx context.Context, userID uuid.UUID, quota enums.QuotaType, current int) error
}

// CreateInput is a new client entry.
type CreateInput struct {
	Name      string `json:"name" validate:"required,max=200"`
	Email     string `json:"email" validate:"omitempty,email"`
	GSTIN     string `json:"gstin" validate:"omitempty,len=15,alphanum"`
	StateCode string `json:"state" validate:"required,max=64"`
	Address   string `json:"address" validate:"omitempty,max=500"`
}

// View is the API shape of a client.
type View struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	GSTIN     string    `json:"gstin,omitempty"`
	State     string    `json:"state"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Service struct {
	repo  Repository
	quota QuotaChecker
	now   func() time.Time
}

func NewService(repo Repository, quota QuotaChecker, now func() time.Time) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("client repo required")
	}
	if quota == nil {
		return nil, fmt.Errorf("quota checker required")
	}
	if now == nil {
		now = time.Now
	}
	return &Service{repo: repo, quota: quota, now: now}, nil
}

// Create adds a client when the plan allows another one.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, in CreateInput) (*View, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required").
			WithDetails(map[string]string{"name": "name is required"})
	}

	count, err := s.repo.Count(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count clients")
	}
	if err := s.quota.CheckCount(ctx, userID, enums.QuotaTypeClient, count); err != nil {
		return nil, err
	}

	client := &models.Client{
		UserID:    userID,
		Name:      name,
		Email:     optional(strings.ToLower(in.Email)),
		GSTIN:     optional(strings.ToUpper(in.GSTIN)),
		StateCode: strings.TrimSpace(in.StateCode),
		Address:   optional(in.Address),
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, client); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create client")
	}
	view := toView(client)
	return &view, nil
}

// List pages through the client book newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*pagination.Page[View], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error()).
			WithDetails(map[string]string{"cursor": err.Error()})
	}
	rows, err := s.repo.List(ctx, userID, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list clients")
	}
	rows, next := pagination.Trim(rows, params.Limit, func(c models.Client) pagination.Cursor {
		return pagination.Cursor{CreatedAt: c.CreatedAt, ID: c.ID}
	})

	page := &pagination.Page[View]{Items: make([]View, 0, len(rows)), NextCursor: next}
	for i := range rows {
		page.Items = append(page.Items, toView(&rows[i]))
	}
	return page, nil
}

func toView(c *models.Client) View {
	return View{
		ID:        c.ID,
		Name:      c.Name,
		Email:     deref(c.Email),
		GSTIN:     deref(c.GSTIN),
		State:     c.StateCode,
		Address:   deref(c.Address),
		CreatedAt: c.CreatedAt,
	}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
