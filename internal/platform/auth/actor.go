package auth

import (
	"context"

	"github.com/google/uuid"
)

// Role identifies what an actor is allowed to do system-wide.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleReception Role = "reception"
	RoleLabTech   Role = "lab_tech"
	RoleDoctor    Role = "doctor"
	RolePatient   Role = "patient"
)

// ValidRole reports whether r is one of the known roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleAdmin, RoleReception, RoleLabTech, RoleDoctor, RolePatient:
		return true
	}
	return false
}

// Actor is the resolved identity behind a request. It is passed explicitly
// into every service operation; services never read identity from shared
// state.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

type contextKey string

const actorKey contextKey = "actor"

// WithActor returns a context carrying the resolved actor.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey, a)
}

// ActorFromContext returns the actor resolved by the auth middleware.
// ok is false when the request was not authenticated.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey).(Actor)
	return a, ok
}
