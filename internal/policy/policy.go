// Package policy is the single authorization gate for the escalation chain.
// Decisions are pure functions of the actor's role and ownership facts the
// caller resolved from current storage state; nothing here touches the store,
// so stale-permission bugs cannot hide in this package.
package policy

import "github.com/noah-isme/luct-reporting-api/internal/models"

// Action enumerates every gated operation.
type Action string

const (
	ActionSubmitReport          Action = "report.submit"
	ActionAttachFeedback        Action = "report.feedback"
	ActionFinalizeReport        Action = "report.finalize"
	ActionCreateSummary         Action = "summary.create"
	ActionAttachSummaryFeedback Action = "summary.feedback"
	ActionCreateAssignment      Action = "assignment.create"
	ActionRevokeAssignment      Action = "assignment.revoke"
	ActionSubmitRating          Action = "rating.submit"
	ActionCreateMonitoringLog   Action = "monitoring.create"
	ActionRespondMonitoringLog  Action = "monitoring.respond"
)

// Facts carries the ownership relationships relevant to a decision. Callers
// must resolve these against the store at the moment of the call; facts are
// never cached across requests.
type Facts struct {
	// ActorHasActiveAssignment: the actor holds an active assignment for the
	// report's course and class.
	ActorHasActiveAssignment bool
	// ActorIsPrincipalLecturer: the actor is the principal lecturer of the
	// course in question.
	ActorIsPrincipalLecturer bool
	// ActorIsProgramLeader: the actor leads the program owning the course, or
	// is the program_leader_id on the summary in question.
	ActorIsProgramLeader bool
	// ActorIsEnrolled: the student actor is enrolled in (or has a monitored
	// relationship with) the target class/lecturer.
	ActorIsEnrolled bool
	// ActorSupervisesSubject: the actor supervises the monitoring target
	// (log author, or PRL/PL above the subject).
	ActorSupervisesSubject bool
}

var table = map[Action]func(models.UserRole, Facts) bool{
	ActionSubmitReport: func(role models.UserRole, f Facts) bool {
		return role == models.RoleLecturer && f.ActorHasActiveAssignment
	},
	ActionAttachFeedback: func(role models.UserRole, f Facts) bool {
		return role == models.RolePrincipalLecturer && f.ActorIsPrincipalLecturer
	},
	ActionFinalizeReport: func(role models.UserRole, f Facts) bool {
		return role == models.RolePrincipalLecturer && f.ActorIsPrincipalLecturer
	},
	ActionCreateSummary: func(role models.UserRole, f Facts) bool {
		return role == models.RolePrincipalLecturer && f.ActorIsPrincipalLecturer
	},
	ActionAttachSummaryFeedback: func(role models.UserRole, f Facts) bool {
		return role == models.RoleProgramLeader && f.ActorIsProgramLeader
	},
	ActionCreateAssignment: func(role models.UserRole, f Facts) bool {
		return role == models.RoleProgramLeader && f.ActorIsProgramLeader
	},
	ActionRevokeAssignment: func(role models.UserRole, f Facts) bool {
		return role == models.RoleProgramLeader && f.ActorIsProgramLeader
	},
	ActionSubmitRating: func(role models.UserRole, f Facts) bool {
		return role == models.RoleStudent && f.ActorIsEnrolled
	},
	ActionCreateMonitoringLog: func(role models.UserRole, f Facts) bool {
		if role == models.RoleStudent {
			return f.ActorIsEnrolled
		}
		return role.Staff()
	},
	ActionRespondMonitoringLog: func(role models.UserRole, f Facts) bool {
		return role.Staff() && f.ActorSupervisesSubject
	},
}

// Allow decides whether the role may perform the action given the facts.
// Unknown actions are denied.
func Allow(role models.UserRole, action Action, facts Facts) bool {
	rule, ok := table[action]
	if !ok {
		return false
	}
	return rule(role, facts)
}
