// Package dashboard reads the per-user task summary.
package dashboard

import (
	"context"

	"github.com/jrsteele09/teamtrack/transport"
)

const summaryPath = "/dashboard/summary/"

// Summary totals tasks across the caller's projects.
type Summary struct {
	TotalTasks     int               `json:"total_tasks"`
	CompletedTasks int               `json:"completed_tasks"`
	PendingTasks   int               `json:"pending_tasks"`
	Projects       []ProjectProgress `json:"projects"`
}

type ProjectProgress struct {
	ID             int64   `json:"id"`
	Name           string  `json:"name"`
	TotalTasks     int     `json:"total_tasks"`
	CompletedTasks int     `json:"completed_tasks"`
	PendingTasks   int     `json:"pending_tasks"`
	ProgressPct    float64 `json:"progress_pct"`
}

type Client struct {
	api *transport.Client
}

func NewClient(api *transport.Client) *Client {
	return &Client{api: api}
}

func (c *Client) Summary(ctx context.Context) (*Summary, error) {
	var s Summary
	if err := c.api.Get(ctx, summaryPath, nil, &s); err != nil {
		return nil, err
	}
	if s.Projects == nil {
		s.Projects = []ProjectProgress{}
	}
	return &s, nil
}
