package models

// ProjectStatus is the lifecycle state of a project.
type ProjectStatus int

const (
	ProjectStatusPlanning ProjectStatus = iota
	ProjectStatusInProgress
	ProjectStatusOnHold
	ProjectStatusCompleted
	ProjectStatusCancelled
)

var projectStatusNames = [...]string{"Planning", "InProgress", "OnHold", "Completed", "Cancelled"}

func (s ProjectStatus) Valid() bool { return s >= ProjectStatusPlanning && s <= ProjectStatusCancelled }

func (s ProjectStatus) String() string {
	if !s.Valid() {
		return "Unknown"
	}
	return projectStatusNames[s]
}

// ProjectRole is a user's role inside one project.
type ProjectRole int

const (
	ProjectRoleManager ProjectRole = iota
	ProjectRoleTeamMember
	ProjectRoleViewer
)

var projectRoleNames = [...]string{"ProjectManager", "TeamMember", "Viewer"}

func (r ProjectRole) Valid() bool { return r >= ProjectRoleManager && r <= ProjectRoleViewer }

func (r ProjectRole) String() string {
	if !r.Valid() {
		return "Unknown"
	}
	return projectRoleNames[r]
}

type TaskStatus int

const (
	TaskStatusToDo TaskStatus = iota
	TaskStatusInProgress
	TaskStatusInReview
	TaskStatusDone
	TaskStatusCancelled
)

var taskStatusNames = [...]string{"ToDo", "InProgress", "InReview", "Done", "Cancelled"}

func (s TaskStatus) Valid() bool { return s >= TaskStatusToDo && s <= TaskStatusCancelled }

func (s TaskStatus) String() string {
	if !s.Valid() {
		return "Unknown"
	}
	return taskStatusNames[s]
}

type TaskPriority int

const (
	TaskPriorityLow TaskPriority = iota
	TaskPriorityMedium
	TaskPriorityHigh
	TaskPriorityCritical
)

var taskPriorityNames = [...]string{"Low", "Medium", "High", "Critical"}

func (p TaskPriority) Valid() bool { return p >= TaskPriorityLow && p <= TaskPriorityCritical }

func (p TaskPriority) String() string {
	if !p.Valid() {
		return "Unknown"
	}
	return taskPriorityNames[p]
}

// SystemRole is a global role carried in the session token.
type SystemRole string

const (
	SystemRoleAdmin          SystemRole = "Admin"
	SystemRoleProjectManager SystemRole = "ProjectManager"
	SystemRoleTeamMember     SystemRole = "TeamMember"
)

// Precedence orders system roles, Admin first. Unknown roles rank last.
func (r SystemRole) Precedence() int {
	switch r {
	case SystemRoleAdmin:
		return 0
	case SystemRoleProjectManager:
		return 1
	case SystemRoleTeamMember:
		return 2
	default:
		return 99
	}
}

func (r SystemRole) Valid() bool { return r.Precedence() < 99 }
