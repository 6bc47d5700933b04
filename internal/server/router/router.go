// Package router implements the request-resolution contract (C7): resolve
// a Request to one command, enforce authentication, and return a Response
// without ever closing the connection on a per-message failure.
package router

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/serezk4/collectiond/internal/apperrors"
	"github.com/serezk4/collectiond/internal/logging"
	"github.com/serezk4/collectiond/internal/model"
	"github.com/serezk4/collectiond/internal/server/commands"
	"github.com/serezk4/collectiond/internal/server/credentials"
)

// Users is the subset of the persistence gateway the router needs to
// resolve a session.
type Users interface {
	FindUserByUsername(ctx context.Context, username string) (model.User, error)
}

const authFailedMessage = "Authorization failed."

// Router is the C7 router.
type Router struct {
	users    Users
	registry *commands.Registry
	deps     *commands.Deps
	log      logging.Logger
}

// New constructs a Router.
func New(users Users, registry *commands.Registry, deps *commands.Deps, log logging.Logger) *Router {
	return &Router{users: users, registry: registry, deps: deps, log: log}
}

// Route resolves req to a Response: empty command short-circuits,
// credentials are verified before anything
// else is consulted, help is composed directly, unknown commands and
// under-supplied payloads get uniform messages, and a panicking command
// is recovered into an error Response rather than propagated.
func (r *Router) Route(ctx context.Context, req model.Request) model.Response {
	if req.Command == "" {
		return model.Empty()
	}

	user, err := r.authenticate(ctx, req.Credentials)
	if err != nil {
		return model.Response{Message: authFailedMessage}
	}

	if strings.EqualFold(req.Command, "help") {
		return model.Response{Message: r.registry.Help()}
	}

	cmd, ok := r.registry.Lookup(req.Command)
	if !ok {
		return model.Response{Message: fmt.Sprintf(
			"command '%s' not found, type 'help' for help", req.Command)}
	}

	if cmd.RequiredPersons > len(req.Persons) {
		return model.Response{Message: "insufficient payload"}
	}

	return r.invoke(ctx, cmd, req, user)
}

func (r *Router) authenticate(ctx context.Context, creds model.Credentials) (model.User, error) {
	user, err := r.users.FindUserByUsername(ctx, creds.Username)
	if err != nil {
		return model.User{}, apperrors.ErrNotFound
	}
	if !credentials.Verify(user.PasswordHash, creds.Password) {
		return model.User{}, apperrors.ErrNotOwner
	}
	return user, nil
}

// invoke runs cmd.Execute, converting both returned errors and recovered
// panics into a Response rather than letting either reach the caller.
func (r *Router) invoke(ctx context.Context, cmd commands.Command, req model.Request, user model.User) (resp model.Response) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error(ctx, "command panicked", "command", cmd.Name, "panic", rec)
			resp = model.Response{Message: fmt.Sprintf("internal error executing '%s'", cmd.Name)}
		}
	}()

	session := commands.Session{User: user}
	out, err := cmd.Execute(ctx, req, session, r.deps)
	if err != nil {
		return model.Response{Message: messageFor(cmd.Name, err)}
	}
	return out
}

func messageFor(command string, err error) string {
	switch {
	case errors.Is(err, apperrors.ErrNotOwner):
		return "not owner"
	case errors.Is(err, apperrors.ErrNotFound):
		return "no such element"
	case errors.Is(err, apperrors.ErrDuplicateUser):
		return "username already taken"
	case errors.Is(err, apperrors.ErrConstraintViolation):
		return "invalid data"
	case errors.Is(err, apperrors.ErrStoreUnavailable):
		return "database unavailable"
	default:
		return fmt.Sprintf("error executing '%s': %v", command, err)
	}
}
