package fakeapi

import (
	"math"
	"net/http"
	"sort"
	"strings"

	"github.com/jrsteele09/teamtrack/dashboard"
	"github.com/jrsteele09/teamtrack/internal/utils"
	"github.com/jrsteele09/teamtrack/projects"
	"github.com/jrsteele09/teamtrack/tasks"
	"github.com/jrsteele09/teamtrack/users"
)

// AddProject stores a project owned by ownerID, who becomes its project
// admin. memberIDs join as plain members.
func (a *API) AddProject(name string, ownerID int64, memberIDs ...int64) projects.Project {
	a.mu.Lock()
	defer a.mu.Unlock()
	p := a.addProject(projects.Input{Name: name}, a.accounts[ownerID])
	for _, id := range memberIDs {
		a.join(p.ID, a.accounts[id], projects.RoleMember)
	}
	return a.projectDetail(p)
}

// AddTask stores t under projectID, filling in ids and timestamps.
func (a *API) AddTask(projectID int64, t tasks.Task) tasks.Task {
	a.mu.Lock()
	defer a.mu.Unlock()
	t.ID = a.id()
	t.Project = projectID
	if t.Status == "" {
		t.Status = tasks.StatusTodo
	}
	if t.Priority == "" {
		t.Priority = tasks.PriorityMedium
	}
	t.CreatedAt = a.timestamp()
	t.UpdatedAt = t.CreatedAt
	a.tasks[t.ID] = &t
	return a.taskView(&t)
}

func (a *API) me(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	writeData(w, http.StatusOK, a.caller(r).user)
}

func (a *API) updateMe(w http.ResponseWriter, r *http.Request) {
	var body struct {
		FirstName *string `json:"first_name"`
		LastName  *string `json:"last_name"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	acct := a.caller(r)
	if body.FirstName != nil {
		acct.user.FirstName = strings.TrimSpace(*body.FirstName)
	}
	if body.LastName != nil {
		acct.user.LastName = strings.TrimSpace(*body.LastName)
	}
	writeData(w, http.StatusOK, acct.user)
}

func (a *API) listUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	role := users.RoleType(q.Get("role"))
	var active *bool
	if v := q.Get("is_active"); v != "" {
		active = utils.Ptr(v == "true" || v == "1" || v == "yes")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	out := []users.User{}
	for _, acct := range a.accounts {
		if role != "" && acct.user.Role != role {
			continue
		}
		if active != nil && acct.user.IsActive != *active {
			continue
		}
		out = append(out, acct.user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	paginate(w, r, out)
}

func (a *API) getUser(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()

	acct, ok := a.accountParam(w, r)
	if !ok {
		return
	}
	writeData(w, http.StatusOK, acct.user)
}

func (a *API) updateUser(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Role     *users.RoleType `json:"role"`
		IsActive *bool           `json:"is_active"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	acct, ok := a.accountParam(w, r)
	if !ok {
		return
	}
	if body.Role != nil && !body.Role.Valid() {
		writeValidation(w, "Validation failed", map[string][]string{"role": {"Invalid role."}})
		return
	}
	if acct.user.ID == a.caller(r).user.ID && body.IsActive != nil && !*body.IsActive {
		writeValidation(w, "You cannot deactivate your own account.", nil)
		return
	}
	if body.Role != nil {
		acct.user.Role = *body.Role
	}
	if body.IsActive != nil {
		acct.user.IsActive = *body.IsActive
	}
	writeData(w, http.StatusOK, acct.user)
}

func (a *API) accountParam(w http.ResponseWriter, r *http.Request) (*account, bool) {
	id, ok := pathID(r, "id")
	acct := a.accounts[id]
	if !ok || acct == nil {
		writeError(w, http.StatusNotFound, "User not found.", "not_found", nil)
		return nil, false
	}
	return acct, true
}

func (a *API) summary(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := dashboard.Summary{Projects: []dashboard.ProjectProgress{}}
	for _, p := range a.visibleProjects(a.caller(r)) {
		progress := dashboard.ProjectProgress{ID: p.ID, Name: p.Name}
		for _, t := range a.tasks {
			if t.Project != p.ID {
				continue
			}
			progress.TotalTasks++
			if t.Status == tasks.StatusDone {
				progress.CompletedTasks++
			}
		}
		progress.PendingTasks = progress.TotalTasks - progress.CompletedTasks
		if progress.TotalTasks > 0 {
			pct := float64(progress.CompletedTasks) / float64(progress.TotalTasks) * 100
			progress.ProgressPct = math.Round(pct*10) / 10
		}
		s.TotalTasks += progress.TotalTasks
		s.CompletedTasks += progress.CompletedTasks
		s.PendingTasks += progress.PendingTasks
		s.Projects = append(s.Projects, progress)
	}
	writeData(w, http.StatusOK, s)
}

// Projects

func (a *API) addProject(in projects.Input, owner *account) *projects.Project {
	now := a.timestamp()
	status := in.Status
	if status == "" {
		status = projects.StatusActive
	}
	p := &projects.Project{
		ID:             a.id(),
		Name:           strings.TrimSpace(in.Name),
		Description:    in.Description,
		Status:         status,
		CreatedBy:      owner.user.ID,
		CreatedByEmail: owner.user.Email,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	a.projects[p.ID] = p
	a.join(p.ID, owner, projects.RoleProjectAdmin)
	return p
}

func (a *API) join(projectID int64, acct *account, role projects.MemberRole) projects.Member {
	m := projects.Member{
		ID:       a.id(),
		UserID:   acct.user.ID,
		Email:    acct.user.Email,
		Role:     role,
		JoinedAt: a.timestamp(),
	}
	a.members[projectID] = append(a.members[projectID], m)
	return m
}

func (a *API) member(projectID, userID int64) (projects.Member, bool) {
	for _, m := range a.members[projectID] {
		if m.UserID == userID {
			return m, true
		}
	}
	return projects.Member{}, false
}

func (a *API) visibleProjects(acct *account) []*projects.Project {
	out := []*projects.Project{}
	for _, p := range a.projects {
		if _, ok := a.member(p.ID, acct.user.ID); ok || acct.user.IsAdmin() {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

// projectParam resolves the {id} route parameter. Projects the caller is not
// a member of are reported as missing.
func (a *API) projectParam(w http.ResponseWriter, r *http.Request) (*projects.Project, bool) {
	id, ok := pathID(r, "id")
	p := a.projects[id]
	if ok && p != nil {
		caller := a.caller(r)
		if _, member := a.member(id, caller.user.ID); member || caller.user.IsAdmin() {
			return p, true
		}
	}
	writeError(w, http.StatusNotFound, "Project not found.", "not_found", nil)
	return nil, false
}

func (a *API) canManage(r *http.Request, projectID int64) bool {
	caller := a.caller(r)
	if caller.user.IsAdmin() {
		return true
	}
	m, ok := a.member(projectID, caller.user.ID)
	return ok && m.Role == projects.RoleProjectAdmin
}

func (a *API) projectDetail(p *projects.Project) projects.Project {
	out := *p
	out.Members = append([]projects.Member{}, a.members[p.ID]...)
	return out
}

func (a *API) projectSummary(p *projects.Project) projects.Project {
	out := *p
	out.MemberCount = utils.Ptr(len(a.members[p.ID]))
	return out
}

func (a *API) listProjects(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()

	visible := a.visibleProjects(a.caller(r))
	out := make([]projects.Project, 0, len(visible))
	for _, p := range visible {
		out = append(out, a.projectSummary(p))
	}
	paginate(w, r, out)
}

func (a *API) createProject(w http.ResponseWriter, r *http.Request) {
	var in projects.Input
	if !decodeBody(w, r, &in) {
		return
	}
	if fields := validateProject(in, true); len(fields) > 0 {
		writeValidation(w, "Validation failed", fields)
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	p := a.addProject(in, a.caller(r))
	writeData(w, http.StatusCreated, a.projectDetail(p))
}

func (a *API) getProject(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()

	p, ok := a.projectParam(w, r)
	if !ok {
		return
	}
	writeData(w, http.StatusOK, a.projectDetail(p))
}

func (a *API) updateProject(w http.ResponseWriter, r *http.Request) {
	var in projects.Input
	if !decodeBody(w, r, &in) {
		return
	}
	if fields := validateProject(in, false); len(fields) > 0 {
		writeValidation(w, "Validation failed", fields)
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	p, ok := a.projectParam(w, r)
	if !ok {
		return
	}
	if !a.canManage(r, p.ID) {
		writeForbidden(w)
		return
	}
	if in.Name != "" {
		p.Name = strings.TrimSpace(in.Name)
	}
	if in.Description != "" {
		p.Description = in.Description
	}
	if in.Status != "" {
		p.Status = in.Status
	}
	p.UpdatedAt = a.timestamp()
	writeData(w, http.StatusOK, a.projectDetail(p))
}

func (a *API) deleteProject(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()

	p, ok := a.projectParam(w, r)
	if !ok {
		return
	}
	if !a.canManage(r, p.ID) {
		writeForbidden(w)
		return
	}
	delete(a.projects, p.ID)
	delete(a.members, p.ID)
	for id, t := range a.tasks {
		if t.Project == p.ID {
			delete(a.tasks, id)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func validateProject(in projects.Input, create bool) map[string][]string {
	fields := map[string][]string{}
	if create && strings.TrimSpace(in.Name) == "" {
		fields["name"] = []string{"This field is required."}
	}
	if in.Status != "" && !in.Status.Valid() {
		fields["status"] = []string{`"` + string(in.Status) + `" is not a valid choice.`}
	}
	return fields
}

func (a *API) listMembers(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()

	p, ok := a.projectParam(w, r)
	if !ok {
		return
	}
	writeData(w, http.StatusOK, a.projectDetail(p).Members)
}

func (a *API) addMember(w http.ResponseWriter, r *http.Request) {
	var req projects.AddMemberRequest
	if !decodeBody(w, r, &req) {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	p, ok := a.projectParam(w, r)
	if !ok {
		return
	}
	if !a.canManage(r, p.ID) {
		writeForbidden(w)
		return
	}
	acct := a.accounts[req.UserID]
	if acct == nil {
		writeValidation(w, "Validation failed", map[string][]string{"user_id": {"User not found."}})
		return
	}
	role := req.Role
	if role == "" {
		role = projects.RoleMember
	}
	if !role.Valid() {
		writeValidation(w, "Validation failed", map[string][]string{"role": {`"` + string(role) + `" is not a valid choice.`}})
		return
	}
	if _, exists := a.member(p.ID, acct.user.ID); exists {
		writeError(w, http.StatusBadRequest, "User is already a member of this project.", "conflict", nil)
		return
	}
	writeData(w, http.StatusCreated, a.join(p.ID, acct, role))
}

func (a *API) removeMember(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()

	p, ok := a.projectParam(w, r)
	if !ok {
		return
	}
	if !a.canManage(r, p.ID) {
		writeForbidden(w)
		return
	}
	userID, _ := pathID(r, "userID")
	kept := a.members[p.ID][:0]
	removed := false
	for _, m := range a.members[p.ID] {
		if m.UserID == userID {
			removed = true
			continue
		}
		kept = append(kept, m)
	}
	if !removed {
		writeError(w, http.StatusNotFound, "Member not found.", "not_found", nil)
		return
	}
	a.members[p.ID] = kept
	w.WriteHeader(http.StatusNoContent)
}
