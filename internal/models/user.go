package models

import "strings"

// UserRole comes from the Supabase app_metadata.role claim.
type UserRole string

const (
	RoleCandidate UserRole = "user"
	RoleRecruiter UserRole = "recruiter"
	RolePartner   UserRole = "partner"
	RoleAdmin     UserRole = "admin"
)

// ReviewerRoles may read other candidates' submissions.
var ReviewerRoles = []UserRole{RoleRecruiter, RolePartner, RoleAdmin}

func ParseRole(s string) UserRole {
	return UserRole(strings.ToLower(strings.TrimSpace(s)))
}
