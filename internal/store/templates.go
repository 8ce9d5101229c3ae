package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/existflow/dashcraft/internal/logger"
	"github.com/existflow/dashcraft/internal/model"
	"github.com/existflow/dashcraft/internal/notify"
)

var (
	ErrNoRepository     = errors.New("no template repository configured")
	ErrTemplateNotFound = errors.New("template not found")
)

// TemplateRepository persists templates remotely
type TemplateRepository interface {
	ListTemplates(ctx context.Context) ([]model.TemplateRecord, error)
	GetTemplate(ctx context.Context, id string) (model.TemplateRecord, error)
	InsertTemplate(ctx context.Context, rec model.TemplateRecord) (model.TemplateRecord, error)
	UpdateTemplate(ctx context.Context, rec model.TemplateRecord) (model.TemplateRecord, error)
	DeleteTemplate(ctx context.Context, id string) error
}

// Templates returns the locally known templates
func (s *Store) Templates() []model.Template {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyTemplates(s.templates)
}

// ActiveTemplateID returns the id of the template loaded on the canvas, if any
func (s *Store) ActiveTemplateID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeTemplateID
}

// fail logs and surfaces a template error and returns it
func (s *Store) fail(title string, err error) error {
	logger.Error(title, logger.F("error", err))
	notify.Error(s.notifier, title, err.Error())
	return err
}

// FetchTemplates replaces the local template list with the remote one
func (s *Store) FetchTemplates(ctx context.Context) error {
	if s.repo == nil {
		return s.fail("Failed to load templates", ErrNoRepository)
	}

	records, err := s.repo.ListTemplates(ctx)
	if err != nil {
		return s.fail("Failed to load templates", err)
	}

	templates := make([]model.Template, 0, len(records))
	for _, rec := range records {
		t, err := model.DecodeTemplate(rec)
		if err != nil {
			logger.Warn("Skipping unreadable template", logger.F("id", rec.ID), logger.F("error", err))
			continue
		}
		templates = append(templates, t)
	}

	s.update(func() bool {
		s.templates = templates
		return true
	})
	logger.Debug("Templates fetched", logger.F("count", len(templates)))
	return nil
}

// SaveTemplate stores the current canvas. If a template is active it is
// updated in place (renamed when name is non-empty); otherwise a new
// template called name is created and becomes active.
func (s *Store) SaveTemplate(ctx context.Context, name string) (model.Template, error) {
	if s.repo == nil {
		return model.Template{}, s.fail("Failed to save template", ErrNoRepository)
	}
	name = strings.TrimSpace(name)

	s.mu.Lock()
	now := time.Now().UTC()
	tpl := model.Template{
		ID:        s.activeTemplateID,
		Name:      name,
		Screens:   copyScreens(s.screens),
		Elements:  copyElements(s.elements),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if existing, ok := s.findTemplateLocked(s.activeTemplateID); ok {
		tpl.CreatedAt = existing.CreatedAt
		if tpl.Name == "" {
			tpl.Name = existing.Name
		}
	}
	s.mu.Unlock()

	if tpl.ID == "" && tpl.Name == "" {
		return model.Template{}, s.fail("Failed to save template", model.ErrEmptyName)
	}

	rec, err := model.EncodeTemplate(tpl)
	if err != nil {
		return model.Template{}, s.fail("Failed to save template", err)
	}

	if tpl.ID == "" {
		rec, err = s.repo.InsertTemplate(ctx, rec)
	} else {
		rec, err = s.repo.UpdateTemplate(ctx, rec)
	}
	if err != nil {
		return model.Template{}, s.fail("Failed to save template", err)
	}

	saved, err := model.DecodeTemplate(rec)
	if err != nil {
		return model.Template{}, s.fail("Failed to save template", err)
	}

	s.update(func() bool {
		s.upsertTemplateLocked(saved)
		s.activeTemplateID = saved.ID
		return true
	})
	logger.Info("Template saved", logger.F("id", saved.ID), logger.F("name", saved.Name))
	return saved, nil
}

// CreateNewTemplate creates a template holding a single empty screen,
// makes it active and loads it onto the canvas
func (s *Store) CreateNewTemplate(ctx context.Context, name string) (model.Template, error) {
	if s.repo == nil {
		return model.Template{}, s.fail("Failed to create template", ErrNoRepository)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Template{}, s.fail("Failed to create template", model.ErrEmptyName)
	}

	now := time.Now().UTC()
	tpl := model.Template{
		Name:      name,
		Screens:   []model.Screen{s.makeScreen(model.DefaultScreenName(1), true)},
		Elements:  []model.Element{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	rec, err := model.EncodeTemplate(tpl)
	if err != nil {
		return model.Template{}, s.fail("Failed to create template", err)
	}
	rec, err = s.repo.InsertTemplate(ctx, rec)
	if err != nil {
		return model.Template{}, s.fail("Failed to create template", err)
	}
	created, err := model.DecodeTemplate(rec)
	if err != nil {
		return model.Template{}, s.fail("Failed to create template", err)
	}

	s.update(func() bool {
		s.upsertTemplateLocked(created)
		s.activeTemplateID = created.ID
		s.loadLocked(created.Screens, created.Elements)
		return true
	})
	logger.Info("Template created", logger.F("id", created.ID), logger.F("name", created.Name))
	return created, nil
}

// LoadTemplate fetches a template and loads its screens and elements onto
// the canvas
func (s *Store) LoadTemplate(ctx context.Context, id string) (model.Template, error) {
	if s.repo == nil {
		return model.Template{}, s.fail("Failed to load template", ErrNoRepository)
	}

	rec, err := s.repo.GetTemplate(ctx, id)
	if err != nil {
		return model.Template{}, s.fail("Failed to load template", err)
	}
	tpl, err := model.DecodeTemplate(rec)
	if err != nil {
		return model.Template{}, s.fail("Failed to load template", err)
	}

	s.update(func() bool {
		s.upsertTemplateLocked(tpl)
		s.activeTemplateID = tpl.ID
		s.loadLocked(tpl.Screens, tpl.Elements)
		return true
	})
	logger.Info("Template loaded", logger.F("id", tpl.ID), logger.F("screens", len(tpl.Screens)),
		logger.F("elements", len(tpl.Elements)))
	return tpl, nil
}

// DeleteTemplate deletes a template remotely and then locally
func (s *Store) DeleteTemplate(ctx context.Context, id string) error {
	if s.repo == nil {
		return s.fail("Failed to delete template", ErrNoRepository)
	}
	if err := s.repo.DeleteTemplate(ctx, id); err != nil {
		return s.fail("Failed to delete template", err)
	}

	s.update(func() bool {
		kept := s.templates[:0]
		for _, t := range s.templates {
			if t.ID != id {
				kept = append(kept, t)
			}
		}
		s.templates = kept
		if s.activeTemplateID == id {
			s.activeTemplateID = ""
		}
		return true
	})
	logger.Info("Template deleted", logger.F("id", id))
	return nil
}

// TemplateByName finds a local template by exact name
func (s *Store) TemplateByName(name string) (model.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.templates {
		if t.Name == name {
			t.Screens = copyScreens(t.Screens)
			t.Elements = copyElements(t.Elements)
			return t, nil
		}
	}
	return model.Template{}, fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
}

func (s *Store) findTemplateLocked(id string) (model.Template, bool) {
	if id == "" {
		return model.Template{}, false
	}
	for _, t := range s.templates {
		if t.ID == id {
			return t, true
		}
	}
	return model.Template{}, false
}

func (s *Store) upsertTemplateLocked(t model.Template) {
	for i := range s.templates {
		if s.templates[i].ID == t.ID {
			s.templates[i] = t
			return
		}
	}
	s.templates = append(s.templates, t)
}
