// Package services defines the business logic for study sessions, documents,
// plans, and chats. This file centralizes common service-level error values
// so that they can be consistently returned by service methods and checked
// by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler/controller layer.
package services

import "errors"

var (
	// ErrSessionNotFound indicates that the requested session does not exist
	// or is not accessible to the current user.
	ErrSessionNotFound = errors.New("session not found")

	// ErrDocumentNotFound indicates that the requested document does not
	// exist within the session.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrTopicNotFound indicates that the requested topic does not exist
	// within the session.
	ErrTopicNotFound = errors.New("topic not found")

	// ErrChatNotFound indicates that the requested chat does not exist
	// within the session.
	ErrChatNotFound = errors.New("chat not found")

	// ErrInvalidState is returned when an operation targets a session in the
	// wrong lifecycle stage (e.g. starting a session that is already ACTIVE,
	// or revising a plan after materialization).
	ErrInvalidState = errors.New("session is not in a valid state for this operation")

	// ErrNoPlan is returned when an operation requires a draft plan and the
	// session has none.
	ErrNoPlan = errors.New("session has no draft plan")

	// ErrNoDocuments is returned when plan generation is requested before
	// any document finished extraction.
	ErrNoDocuments = errors.New("no processed documents available")

	// ErrBaselineRevision is returned when an undo targets version 1; the
	// initial generation cannot be undone, only superseded.
	ErrBaselineRevision = errors.New("cannot undo the initial plan revision")

	// ErrMalformedGeneration is returned when the model's plan output cannot
	// be parsed or fails structural validation.
	ErrMalformedGeneration = errors.New("generated plan is malformed")

	// ErrEmptyPrompt is returned when a chat message contains no content.
	ErrEmptyPrompt = errors.New("prompt is empty")

	// ErrTooLong is returned when a chat message exceeds the maximum
	// configured length limit.
	ErrTooLong = errors.New("prompt too long")
)
