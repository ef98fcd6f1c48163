// Package security provides the actor context and posting-window policies.
//
// Identity and role storage live outside this service; requests arrive with
// an opaque actor identifier and a set of granted permission flags, which the
// HTTP layer threads through context. Domain services never consult ambient
// global state for the current user.
package security

import "context"

// Actor is the authenticated principal performing an operation.
type Actor struct {
	ID          string
	Name        string
	Permissions []string
	IsAdmin     bool
}

// HasPermission checks whether the actor carries a permission flag.
// Admins implicitly hold every permission.
func (a *Actor) HasPermission(perm string) bool {
	if a == nil {
		return false
	}
	if a.IsAdmin {
		return true
	}
	for _, p := range a.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

type actorKey struct{}

// WithActor adds the actor to context.
// Used by middleware to propagate the authenticated principal through the
// request chain.
func WithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// GetActor retrieves the actor from context, or nil when unauthenticated.
func GetActor(ctx context.Context) *Actor {
	if a, ok := ctx.Value(actorKey{}).(*Actor); ok {
		return a
	}
	return nil
}

// GetActorID retrieves the actor ID from context.
// Returns empty string if not found.
func GetActorID(ctx context.Context) string {
	if a := GetActor(ctx); a != nil {
		return a.ID
	}
	return ""
}
