// Package projects calls the TeamTrack project and project-member endpoints.
package projects

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jrsteele09/teamtrack/internal/utils"
	"github.com/jrsteele09/teamtrack/transport"
)

const projectsPath = "/projects/"

// ListParams selects a page of the caller's projects.
type ListParams struct {
	Page     int
	PageSize int
}

func (p ListParams) query() url.Values {
	q := url.Values{}
	utils.SetInt(q, "page", int64(p.Page))
	utils.SetInt(q, "page_size", int64(p.PageSize))
	return q
}

type Client struct {
	api *transport.Client
}

func NewClient(api *transport.Client) *Client {
	return &Client{api: api}
}

func (c *Client) List(ctx context.Context, params ListParams) (*transport.Page[Project], error) {
	return transport.List[Project](ctx, c.api, projectsPath, params.query())
}

func (c *Client) Get(ctx context.Context, id int64) (*Project, error) {
	var p Project
	if err := c.api.Get(ctx, projectPath(id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) Create(ctx context.Context, in Input) (*Project, error) {
	var p Project
	if err := c.api.Post(ctx, projectsPath, in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) Update(ctx context.Context, id int64, in Input) (*Project, error) {
	var p Project
	if err := c.api.Patch(ctx, projectPath(id), in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) Delete(ctx context.Context, id int64) error {
	return c.api.Delete(ctx, projectPath(id))
}

func (c *Client) Members(ctx context.Context, id int64) ([]Member, error) {
	page, err := transport.List[Member](ctx, c.api, membersPath(id), nil)
	if err != nil {
		return nil, err
	}
	return page.Results, nil
}

func (c *Client) AddMember(ctx context.Context, id int64, req AddMemberRequest) (*Member, error) {
	var m Member
	if err := c.api.Post(ctx, membersPath(id), req, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Client) RemoveMember(ctx context.Context, id, userID int64) error {
	return c.api.Delete(ctx, fmt.Sprintf("%s%d/", membersPath(id), userID))
}

func projectPath(id int64) string {
	return fmt.Sprintf("%s%d/", projectsPath, id)
}

func membersPath(id int64) string {
	return projectPath(id) + "members/"
}
