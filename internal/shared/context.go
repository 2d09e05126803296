package shared

import "context"

// Actor identifies the user performing a request. The service trusts the
// identity as given by the edge; it is only used to stamp created_by on
// movements and to gate write access.
type Actor struct {
	ID   int64
	Role string
}

type actorContextKey struct{}

// ContextWithActor stores the actor in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor from context. The zero Actor is
// returned when none was attached.
func ActorFromContext(ctx context.Context) Actor {
	actor, _ := ctx.Value(actorContextKey{}).(Actor)
	return actor
}

// CanWrite reports whether the actor may post stock changes or edit the
// catalog. Read-only roles are allowed everywhere else.
func (a Actor) CanWrite() bool {
	return a.ID != 0 && a.Role != "viewer"
}
