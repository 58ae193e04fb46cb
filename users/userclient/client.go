// Package userclient calls the TeamTrack user endpoints: the caller's own
// profile and the admin-only user directory.
package userclient

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jrsteele09/teamtrack/internal/utils"
	"github.com/jrsteele09/teamtrack/transport"
	"github.com/jrsteele09/teamtrack/users"
)

const (
	mePath    = "/users/me/"
	usersPath = "/users/"
)

// ProfileUpdate changes the caller's own names. Nil fields are left as they are.
type ProfileUpdate struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
}

// ListParams filters the admin user list.
type ListParams struct {
	Role     users.RoleType
	IsActive *bool
	Page     int
	PageSize int
}

func (p ListParams) query() url.Values {
	q := url.Values{}
	utils.SetString(q, "role", string(p.Role))
	utils.SetBool(q, "is_active", p.IsActive)
	utils.SetInt(q, "page", int64(p.Page))
	utils.SetInt(q, "page_size", int64(p.PageSize))
	return q
}

// AdminUpdate is the admin PATCH body. Only role and active flag can change.
type AdminUpdate struct {
	Role     *users.RoleType `json:"role,omitempty"`
	IsActive *bool           `json:"is_active,omitempty"`
}

type Client struct {
	api *transport.Client
}

func NewClient(api *transport.Client) *Client {
	return &Client{api: api}
}

func (c *Client) Me(ctx context.Context) (*users.User, error) {
	var u users.User
	if err := c.api.Get(ctx, mePath, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) UpdateMe(ctx context.Context, update ProfileUpdate) (*users.User, error) {
	var u users.User
	if err := c.api.Patch(ctx, mePath, update, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) List(ctx context.Context, params ListParams) (*transport.Page[users.User], error) {
	return transport.List[users.User](ctx, c.api, usersPath, params.query())
}

func (c *Client) Get(ctx context.Context, id int64) (*users.User, error) {
	var u users.User
	if err := c.api.Get(ctx, userPath(id), nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) Update(ctx context.Context, id int64, update AdminUpdate) (*users.User, error) {
	var u users.User
	if err := c.api.Patch(ctx, userPath(id), update, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func userPath(id int64) string {
	return fmt.Sprintf("%s%d/", usersPath, id)
}
