package remote

import (
	"context"
	"net/http"
	"net/url"

	"github.com/existflow/dashcraft/internal/model"
)

func templatePath(id string) string {
	return "/templates/" + url.PathEscape(id)
}

// ListTemplates returns the signed-in user's templates
func (c *Client) ListTemplates(ctx context.Context) ([]model.TemplateRecord, error) {
	if err := c.requireLogin(); err != nil {
		return nil, err
	}
	var out []model.TemplateRecord
	err := c.do(ctx, http.MethodGet, "/templates", nil, nil, &out)
	return out, err
}

// GetTemplate loads one template
func (c *Client) GetTemplate(ctx context.Context, id string) (model.TemplateRecord, error) {
	if err := c.requireLogin(); err != nil {
		return model.TemplateRecord{}, err
	}
	var out model.TemplateRecord
	err := c.do(ctx, http.MethodGet, templatePath(id), nil, nil, &out)
	return out, err
}

// InsertTemplate creates a template
func (c *Client) InsertTemplate(ctx context.Context, rec model.TemplateRecord) (model.TemplateRecord, error) {
	if err := c.requireLogin(); err != nil {
		return model.TemplateRecord{}, err
	}
	var out model.TemplateRecord
	err := c.do(ctx, http.MethodPost, "/templates", nil, rec, &out)
	return out, err
}

// UpdateTemplate overwrites a template's name and content
func (c *Client) UpdateTemplate(ctx context.Context, rec model.TemplateRecord) (model.TemplateRecord, error) {
	if err := c.requireLogin(); err != nil {
		return model.TemplateRecord{}, err
	}
	var out model.TemplateRecord
	err := c.do(ctx, http.MethodPut, templatePath(rec.ID), nil, rec, &out)
	return out, err
}

// DeleteTemplate deletes a template
func (c *Client) DeleteTemplate(ctx context.Context, id string) error {
	if err := c.requireLogin(); err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, templatePath(id), nil, nil, nil)
}
