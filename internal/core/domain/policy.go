package domain

// Operation is an action on leads subject to access control.
type Operation int

const (
	OpCreateLead Operation = iota
	OpReadLead
	OpUpdateLead
	OpDeleteLead
	OpSearchLead
	OpViewStatistics
)

// Operations lists every operation the policy decides on.
var Operations = []Operation{
	OpCreateLead, OpReadLead, OpUpdateLead, OpDeleteLead, OpSearchLead, OpViewStatistics,
}

func (o Operation) String() string {
	switch o {
	case OpCreateLead:
		return "CreateLead"
	case OpReadLead:
		return "ReadLead"
	case OpUpdateLead:
		return "UpdateLead"
	case OpDeleteLead:
		return "DeleteLead"
	case OpSearchLead:
		return "SearchLead"
	case OpViewStatistics:
		return "ViewStatistics"
	}
	return "Unknown"
}

// Authorize reports whether role may perform op.
// Unknown roles and operations are denied.
func Authorize(role Role, op Operation) bool {
	switch role {
	case RoleAdmin:
		switch op {
		case OpCreateLead, OpReadLead, OpUpdateLead, OpDeleteLead, OpSearchLead, OpViewStatistics:
			return true
		}
	case RoleSalesRep:
		switch op {
		case OpCreateLead, OpReadLead, OpUpdateLead, OpSearchLead, OpViewStatistics:
			return true
		case OpDeleteLead:
			return false
		}
	}
	return false
}
