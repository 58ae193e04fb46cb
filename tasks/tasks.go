package tasks

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

type Status string

const (
	StatusTodo       Status = "TODO"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
)

var statusLabels = map[Status]string{
	StatusTodo:       "Todo",
	StatusInProgress: "In Progress",
	StatusDone:       "Done",
}

func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

func (s Status) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

var priorityLabels = map[Priority]string{
	PriorityLow:    "Low",
	PriorityMedium: "Medium",
	PriorityHigh:   "High",
}

func (p Priority) Label() string {
	if l, ok := priorityLabels[p]; ok {
		return l
	}
	return string(p)
}

func (p Priority) Valid() bool {
	_, ok := priorityLabels[p]
	return ok
}

// DateLayout is the wire format of due dates.
const DateLayout = "2006-01-02"

// Date is a calendar date without a time of day. The zero Date encodes as null.
type Date struct {
	time.Time
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, errors.Wrapf(err, "tasks.ParseDate %q", s)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(DateLayout))
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return errors.Wrap(err, "tasks.Date")
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

type Task struct {
	ID              int64     `json:"id"`
	Project         int64     `json:"project"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Status          Status    `json:"status"`
	Priority        Priority  `json:"priority"`
	DueDate         Date      `json:"due_date"`
	AssignedTo      *int64    `json:"assigned_to"`
	AssignedToEmail *string   `json:"assigned_to_email"`
	CreatedBy       int64     `json:"created_by"`
	CreatedByEmail  string    `json:"created_by_email"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Input is the create and update body. Nil fields are omitted so an update
// only touches what is set; Unassign clears the assignee.
type Input struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Status      *Status   `json:"status,omitempty"`
	Priority    *Priority `json:"priority,omitempty"`
	DueDate     *Date     `json:"due_date,omitempty"`
	AssignedTo  *int64    `json:"assigned_to,omitempty"`
	Unassign    bool      `json:"-"`
}

func (in Input) MarshalJSON() ([]byte, error) {
	type plain Input
	b, err := json.Marshal(plain(in))
	if err != nil || !in.Unassign {
		return b, err
	}
	var fields map[string]any
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, err
	}
	fields["assigned_to"] = nil
	return json.Marshal(fields)
}
