package fakeapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/jrsteele09/teamtrack/internal/utils"
	"github.com/jrsteele09/teamtrack/projects"
	"github.com/jrsteele09/teamtrack/tasks"
)

func (a *API) taskView(t *tasks.Task) tasks.Task {
	out := *t
	if creator := a.accounts[t.CreatedBy]; creator != nil {
		out.CreatedByEmail = creator.user.Email
	}
	out.AssignedToEmail = nil
	if t.AssignedTo != nil {
		if assignee := a.accounts[*t.AssignedTo]; assignee != nil {
			out.AssignedToEmail = utils.Ptr(assignee.user.Email)
		}
	}
	return out
}

func (a *API) taskParam(w http.ResponseWriter, r *http.Request, p *projects.Project) (*tasks.Task, bool) {
	id, ok := pathID(r, "taskID")
	t := a.tasks[id]
	if !ok || t == nil || t.Project != p.ID {
		writeError(w, http.StatusNotFound, "Task not found.", "not_found", nil)
		return nil, false
	}
	return t, true
}

// listTasks answers with a bare array unless the caller asks for a page.
func (a *API) listTasks(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()

	p, ok := a.projectParam(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	status := tasks.Status(q.Get("status"))
	priority := tasks.Priority(q.Get("priority"))
	search := strings.ToLower(q.Get("search"))
	assignedTo, _ := strconv.ParseInt(q.Get("assigned_to"), 10, 64)
	from, _ := tasks.ParseDate(q.Get("due_date_from"))
	to, _ := tasks.ParseDate(q.Get("due_date_to"))

	out := []tasks.Task{}
	for _, t := range a.tasks {
		switch {
		case t.Project != p.ID,
			status != "" && t.Status != status,
			priority != "" && t.Priority != priority,
			assignedTo > 0 && (t.AssignedTo == nil || *t.AssignedTo != assignedTo),
			!from.IsZero() && (t.DueDate.IsZero() || t.DueDate.Before(from.Time)),
			!to.IsZero() && (t.DueDate.IsZero() || t.DueDate.After(to.Time)),
			search != "" && !strings.Contains(strings.ToLower(t.Title+" "+t.Description), search):
			continue
		}
		out = append(out, a.taskView(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	if q.Has("page") || q.Has("page_size") {
		paginate(w, r, out)
		return
	}
	writeData(w, http.StatusOK, out)
}

func (a *API) createTask(w http.ResponseWriter, r *http.Request) {
	var raw map[string]json.RawMessage
	if !decodeBody(w, r, &raw) {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	p, ok := a.projectParam(w, r)
	if !ok {
		return
	}
	t := &tasks.Task{
		Project:   p.ID,
		Status:    tasks.StatusTodo,
		Priority:  tasks.PriorityMedium,
		CreatedBy: a.caller(r).user.ID,
	}
	if fields := a.applyTask(t, raw, true); len(fields) > 0 {
		writeValidation(w, "Validation failed", fields)
		return
	}
	t.ID = a.id()
	t.CreatedAt = a.timestamp()
	t.UpdatedAt = t.CreatedAt
	a.tasks[t.ID] = t
	writeData(w, http.StatusCreated, a.taskView(t))
}

func (a *API) getTask(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()

	p, ok := a.projectParam(w, r)
	if !ok {
		return
	}
	t, ok := a.taskParam(w, r, p)
	if !ok {
		return
	}
	writeData(w, http.StatusOK, a.taskView(t))
}

func (a *API) updateTask(w http.ResponseWriter, r *http.Request) {
	var raw map[string]json.RawMessage
	if !decodeBody(w, r, &raw) {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	p, ok := a.projectParam(w, r)
	if !ok {
		return
	}
	t, ok := a.taskParam(w, r, p)
	if !ok {
		return
	}
	updated := *t
	if fields := a.applyTask(&updated, raw, false); len(fields) > 0 {
		writeValidation(w, "Validation failed", fields)
		return
	}
	updated.UpdatedAt = a.timestamp()
	*t = updated
	writeData(w, http.StatusOK, a.taskView(t))
}

func (a *API) deleteTask(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()

	p, ok := a.projectParam(w, r)
	if !ok {
		return
	}
	t, ok := a.taskParam(w, r, p)
	if !ok {
		return
	}
	delete(a.tasks, t.ID)
	w.WriteHeader(http.StatusNoContent)
}

// applyTask copies the fields present in raw onto t and returns field errors.
func (a *API) applyTask(t *tasks.Task, raw map[string]json.RawMessage, create bool) map[string][]string {
	fields := map[string][]string{}
	invalid := func(field string) {
		fields[field] = []string{"Invalid value."}
	}

	if v, ok := raw["title"]; ok {
		if err := json.Unmarshal(v, &t.Title); err != nil {
			invalid("title")
		}
		t.Title = strings.TrimSpace(t.Title)
	}
	if (create || raw["title"] != nil) && t.Title == "" {
		fields["title"] = []string{"This field is required."}
	}
	if v, ok := raw["description"]; ok {
		if err := json.Unmarshal(v, &t.Description); err != nil {
			invalid("description")
		}
	}
	if v, ok := raw["status"]; ok {
		if err := json.Unmarshal(v, &t.Status); err != nil || !t.Status.Valid() {
			fields["status"] = []string{`"` + strings.Trim(string(v), `"`) + `" is not a valid choice.`}
		}
	}
	if v, ok := raw["priority"]; ok {
		if err := json.Unmarshal(v, &t.Priority); err != nil || !t.Priority.Valid() {
			fields["priority"] = []string{`"` + strings.Trim(string(v), `"`) + `" is not a valid choice.`}
		}
	}
	if v, ok := raw["due_date"]; ok {
		if err := json.Unmarshal(v, &t.DueDate); err != nil {
			fields["due_date"] = []string{"Date has wrong format. Use one of these formats instead: YYYY-MM-DD."}
		}
	}
	if v, ok := raw["assigned_to"]; ok {
		if bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			t.AssignedTo = nil
		} else {
			var id int64
			switch err := json.Unmarshal(v, &id); {
			case err != nil:
				invalid("assigned_to")
			case a.accounts[id] == nil:
				fields["assigned_to"] = []string{"User not found."}
			default:
				t.AssignedTo = utils.Ptr(id)
			}
		}
	}
	return fields
}
