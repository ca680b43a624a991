package db

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// FailureKind classifies a store failure for the caller.
type FailureKind string

const (
	KindTimeout     FailureKind = "timeout"
	KindUnreachable FailureKind = "unreachable"
	KindSchema      FailureKind = "schema"
	KindConstraint  FailureKind = "constraint"
	KindNotFound    FailureKind = "not_found"
	KindOther       FailureKind = "other"
)

// IOFailure is the typed error every repository returns when a round trip to
// the store fails. Callers surface it with a short diagnostic and never retry.
type IOFailure struct {
	Op   string
	Kind FailureKind
	Err  error
}

func (e *IOFailure) Error() string {
	return fmt.Sprintf("store %s failed (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *IOFailure) Unwrap() error { return e.Err }

// Temporary reports whether the store itself was unavailable, as opposed to
// rejecting the statement.
func (e *IOFailure) Temporary() bool {
	return e.Kind == KindTimeout || e.Kind == KindUnreachable
}

// Diagnostic is the short text shown to the user.
func (e *IOFailure) Diagnostic() string {
	var pgErr *pgconn.PgError
	if errors.As(e.Err, &pgErr) {
		return fmt.Sprintf("%s: %s (SQLSTATE %s)", e.Op, pgErr.Message, pgErr.Code)
	}
	switch e.Kind {
	case KindTimeout:
		return e.Op + ": database did not answer in time"
	case KindUnreachable:
		return e.Op + ": database unreachable"
	case KindNotFound:
		return e.Op + ": no such record"
	}
	return e.Op + ": " + e.Err.Error()
}

// Fail wraps err as an IOFailure for op. A nil err yields nil and an existing
// IOFailure is returned unchanged.
func Fail(op string, err error) error {
	if err == nil {
		return nil
	}
	var existing *IOFailure
	if errors.As(err, &existing) {
		return err
	}
	return &IOFailure{Op: op, Kind: classify(err), Err: err}
}

// IsNotFound reports whether err is a store lookup that matched no row.
func IsNotFound(err error) bool {
	var f *IOFailure
	return errors.As(err, &f) && f.Kind == KindNotFound
}

func classify(err error) FailureKind {
	if errors.Is(err, pgx.ErrNoRows) {
		return KindNotFound
	}
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) {
		return KindTimeout
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "42P01" || pgErr.Code == "42703":
			return KindSchema
		case len(pgErr.Code) == 5 && pgErr.Code[:2] == "23":
			return KindConstraint
		case len(pgErr.Code) == 5 && pgErr.Code[:2] == "08":
			return KindUnreachable
		}
		return KindOther
	}

	var connErr *pgconn.ConnectError
	var netErr net.Error
	if errors.As(err, &connErr) || errors.As(err, &netErr) {
		return KindUnreachable
	}
	return KindOther
}

// WithTimeout bounds a single store round trip. A non-positive d leaves ctx
// unchanged.
func WithTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}
