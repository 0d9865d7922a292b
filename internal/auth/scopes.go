package auth

// Scopes granted to routine clients.
const (
	ScopeRoutineRead  = "routine:read"
	ScopeRoutineWrite = "routine:write"
)

// AllScopes lists every scope, in the order tokens are issued with.
var AllScopes = []string{ScopeRoutineRead, ScopeRoutineWrite}
