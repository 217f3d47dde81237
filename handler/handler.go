// Package handler maps a parsed request to exactly one persistence operation
// and converts the outcome into a (status, body) reply.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"usersock/db"
	"usersock/repo"
	"usersock/wire"
)

// RequestObserver receives one observation per handled request.
type RequestObserver interface {
	ObserveRequest(op string, status int, duration time.Duration)
}

// Dispatcher turns raw request bytes into raw reply bytes. It is safe for
// concurrent use; the only shared state is the pooled store underneath.
type Dispatcher struct {
	store repo.UserStore
	log   *slog.Logger
	obs   RequestObserver
}

// New builds a Dispatcher. obs may be nil.
func New(store repo.UserStore, log *slog.Logger, obs RequestObserver) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{store: store, log: log, obs: obs}
}

// reply pairs a status line with its body.
type reply struct {
	status string
	code   int
	body   string
}

func ok(body string) reply       { return reply{wire.OKResponse, 200, body} }
func notFound(body string) reply { return reply{wire.NotFoundResponse, 404, body} }
func serverError(body string) reply {
	return reply{wire.ServerErrorResponse, 500, body}
}

// Inherited failure bodies, byte-exact. The create failure body carries a
// trailing space.
const (
	bodyCreateFailed = "Error "
	bodyError        = "Error"
	bodyUserNotFound = "User not found"
	bodyUnrecognized = "404 Not Found"
)

// Handle processes one request buffer and returns the full wire reply.
//
// The failure policy is deliberately coarse: every failure other than a
// missing record collapses to 500, and only read-one and delete distinguish
// 404 at all. Update writes blindly and reports 200 even for an absent id.
func (d *Dispatcher) Handle(ctx context.Context, raw []byte) []byte {
	start := time.Now()

	env, err := wire.Parse(raw)
	var r reply
	if err != nil {
		r = d.parseFailure(env.Op)
	} else {
		r = d.dispatch(ctx, env)
	}

	d.log.Info("request",
		slog.String("op", env.Op.String()),
		slog.Int("status", r.code),
		slog.Duration("duration", time.Since(start)),
	)
	if d.obs != nil {
		d.obs.ObserveRequest(env.Op.String(), r.code, time.Since(start))
	}

	return []byte(r.status + r.body)
}

// parseFailure covers Invalid-Identifier and Malformed-Body: both are 500s,
// with the create branch keeping its inherited body.
func (d *Dispatcher) parseFailure(op wire.Op) reply {
	if op == wire.OpCreate {
		return serverError(bodyCreateFailed)
	}
	return serverError(bodyError)
}

func (d *Dispatcher) dispatch(ctx context.Context, env wire.Envelope) reply {
	switch env.Op {
	case wire.OpCreate:
		if err := d.store.Insert(ctx, env.Params); err != nil {
			d.log.Error("create failed", slog.Any("error", err))
			return serverError(bodyCreateFailed)
		}
		return ok("user created")

	case wire.OpReadOne:
		u, err := d.store.GetByID(ctx, env.ID)
		if db.IsNotFound(err) {
			return notFound(bodyUserNotFound)
		}
		if err != nil {
			d.log.Error("read one failed", slog.Int64("id", env.ID), slog.Any("error", err))
			return serverError(bodyError)
		}
		return d.jsonReply(u)

	case wire.OpReadAll:
		users, err := d.store.ListAll(ctx)
		if err != nil {
			d.log.Error("read all failed", slog.Any("error", err))
			return serverError(bodyError)
		}
		return d.jsonReply(users)

	case wire.OpUpdate:
		if err := d.store.UpdateByID(ctx, env.ID, env.Params); err != nil {
			d.log.Error("update failed", slog.Int64("id", env.ID), slog.Any("error", err))
			return serverError(bodyError)
		}
		return ok("User updated")

	case wire.OpDelete:
		err := d.store.DeleteByID(ctx, env.ID)
		if db.IsNotFound(err) {
			return notFound(bodyUserNotFound)
		}
		if err != nil {
			d.log.Error("delete failed", slog.Int64("id", env.ID), slog.Any("error", err))
			return serverError(bodyError)
		}
		return ok("User deleted")

	default:
		return notFound(bodyUnrecognized)
	}
}

func (d *Dispatcher) jsonReply(v any) reply {
	b, err := json.Marshal(v)
	if err != nil {
		d.log.Error("encode failed", slog.Any("error", err))
		return serverError(bodyError)
	}
	return ok(string(b))
}
