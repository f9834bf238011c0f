// Package er provides a typed error taxonomy: every failure mode named in
// the protocol (frame consensus, HTLC cancellation reasons, settlement
// guards, jBatch preconditions, ...) is a distinct *ErrorCode on a small
// number of per-subsystem ErrorTypes, rather than a bare error or a string.
package er

import (
	"errors"
	"fmt"
	"strings"

	goerrors "github.com/go-errors/errors"
)

// R is the error interface returned by every handler in this module. It
// carries an optional captured stack (for FINTECH-SAFETY invariant
// failures) and chains wrapped causes the way a plain error does, but
// additionally exposes the ErrorCode that produced it so callers can
// switch on failure kind instead of matching strings.
type R interface {
	error
	Message() string
	Code() *ErrorCode
	HasStack() bool
	Stack() []string
	AddMessage(m string) R
}

// ErrorType groups related error codes, one per subsystem (account, htlc,
// settlement, dispute, entity, jbatch, orderbook).
type ErrorType struct {
	Name  string
	Codes []*ErrorCode
}

// NewErrorType creates a new error type identified by name, e.g.
// "account.FrameError".
func NewErrorType(name string) *ErrorType {
	return &ErrorType{Name: name}
}

// ErrorCode is a single named failure mode, e.g. FRAME_CONSENSUS_FAILED.
type ErrorCode struct {
	Type   *ErrorType
	Detail string
}

// Code registers and returns a new error code under this type.
func (t *ErrorType) Code(detail string) *ErrorCode {
	ec := &ErrorCode{Type: t, Detail: detail}
	t.Codes = append(t.Codes, ec)
	return ec
}

// Is reports whether err was produced by this code.
func (c *ErrorCode) Is(err R) bool {
	if err == nil {
		return false
	}
	return err.Code() == c
}

// New builds an R carrying this code, an explanatory message, and an
// optional wrapped cause. It captures no stack; NewWithStack does,
// keeping the common path cheap.
func (c *ErrorCode) New(info string, cause error) R {
	return &xerr{code: c, messages: messageList(info), cause: cause}
}

// NewWithStack is New, plus a captured goroutine stack. Reserved for
// invariant failures (FINTECH-SAFETY) where a post-mortem trace matters.
func (c *ErrorCode) NewWithStack(info string) R {
	stack := goerrors.Wrap(errors.New(c.Detail), 1).ErrorStack()
	return &xerr{code: c, messages: messageList(info), stack: []byte(stack)}
}

// Panic raises info as a FINTECH-SAFETY-class R, for an invariant that
// must never fail given correctly-behaving callers: a state corruption
// too severe to continue processing, rather than a normal rejected
// input. No caller in this module recovers it, so processing
// stops instead of silently continuing on corrupted state.
func (c *ErrorCode) Panic(info string) {
	panic(c.NewWithStack(info))
}

func messageList(info string) []string {
	if info == "" {
		return nil
	}
	return []string{info}
}

type xerr struct {
	code     *ErrorCode
	messages []string
	cause    error
	stack    []byte
}

func (e *xerr) Code() *ErrorCode { return e.code }

func (e *xerr) Message() string {
	head := e.code.Detail
	if len(e.messages) > 0 {
		head = head + ": " + strings.Join(e.messages, ": ")
	}
	if e.cause != nil {
		head = head + ": " + e.cause.Error()
	}
	return head
}

func (e *xerr) Error() string { return e.Message() }

func (e *xerr) HasStack() bool { return e.stack != nil }

func (e *xerr) Stack() []string {
	if e.stack == nil {
		return nil
	}
	return strings.Split(string(e.stack), "\n")
}

func (e *xerr) AddMessage(m string) R {
	cp := *e
	cp.messages = append([]string{m}, cp.messages...)
	return &cp
}

func (e *xerr) Unwrap() error { return e.cause }

// New wraps a plain string as an untyped R, for cases (e.g. adapting a
// stdlib/third-party error at a boundary) where no specific ErrorCode
// applies. Prefer a real ErrorCode wherever the failure is named in the
// protocol.
func New(s string) R {
	return &xerr{code: genericCode, messages: []string{s}}
}

// Errorf is New with formatting.
func Errorf(format string, a ...interface{}) R {
	return New(fmt.Sprintf(format, a...))
}

// E adapts a plain error into R; an error that is not already an R is
// wrapped under the generic error code.
func E(err error) R {
	if err == nil {
		return nil
	}
	if r, ok := err.(R); ok {
		return r
	}
	return &xerr{code: genericCode, cause: err}
}

var genericType = NewErrorType("er.Generic")
var genericCode = genericType.Code("error")

// Native adapts an R back into a plain error for interop with stdlib APIs.
// The result carries only the message: it does not wrap the R or its
// cause, so errors.Is/errors.As cannot reach either through it.
func Native(err R) error {
	if err == nil {
		return nil
	}
	return errors.New(err.Message())
}
