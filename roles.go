package authn

// IsAuthorized is the capability check used by delivery layers guarding
// role restricted routes. An empty requirement list authorizes every role.
func IsAuthorized(requiredRoles []UserRole, userRole UserRole) bool {
	if len(requiredRoles) == 0 {
		return true
	}

	if !userRole.IsValid() {
		return false
	}

	for _, required := range requiredRoles {
		if required == userRole {
			return true
		}
	}

	return false
}
