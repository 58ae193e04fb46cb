// Package tasks calls the TeamTrack task endpoints nested under a project.
package tasks

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jrsteele09/teamtrack/internal/utils"
	"github.com/jrsteele09/teamtrack/transport"
)

// Filter narrows a project's task list. Zero values are not sent.
type Filter struct {
	Status      Status
	Priority    Priority
	AssignedTo  int64
	DueDateFrom Date
	DueDateTo   Date
	Search      string
	Page        int
	PageSize    int
}

func (f Filter) query() url.Values {
	q := url.Values{}
	utils.SetString(q, "status", string(f.Status))
	utils.SetString(q, "priority", string(f.Priority))
	utils.SetInt(q, "assigned_to", f.AssignedTo)
	utils.SetString(q, "due_date_from", f.DueDateFrom.String())
	utils.SetString(q, "due_date_to", f.DueDateTo.String())
	utils.SetString(q, "search", f.Search)
	utils.SetInt(q, "page", int64(f.Page))
	utils.SetInt(q, "page_size", int64(f.PageSize))
	return q
}

type Client struct {
	api *transport.Client
}

func NewClient(api *transport.Client) *Client {
	return &Client{api: api}
}

func (c *Client) List(ctx context.Context, projectID int64, filter Filter) (*transport.Page[Task], error) {
	return transport.List[Task](ctx, c.api, tasksPath(projectID), filter.query())
}

func (c *Client) Get(ctx context.Context, projectID, taskID int64) (*Task, error) {
	var t Task
	if err := c.api.Get(ctx, taskPath(projectID, taskID), nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) Create(ctx context.Context, projectID int64, in Input) (*Task, error) {
	var t Task
	if err := c.api.Post(ctx, tasksPath(projectID), in, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) Update(ctx context.Context, projectID, taskID int64, in Input) (*Task, error) {
	var t Task
	if err := c.api.Patch(ctx, taskPath(projectID, taskID), in, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) Delete(ctx context.Context, projectID, taskID int64) error {
	return c.api.Delete(ctx, taskPath(projectID, taskID))
}

func tasksPath(projectID int64) string {
	return fmt.Sprintf("/projects/%d/tasks/", projectID)
}

func taskPath(projectID, taskID int64) string {
	return fmt.Sprintf("%s%d/", tasksPath(projectID), taskID)
}
