package domain

import "errors"

var (
	// ErrRoomNotFound is returned when a room code has no session document.
	ErrRoomNotFound = errors.New("room not found")
	// ErrPathNotFound is returned by document stores for unwritten paths.
	ErrPathNotFound = errors.New("path not found")
	// ErrInvalidQuestions indicates a malformed question-list payload.
	ErrInvalidQuestions = errors.New("invalid question list")
	// ErrSetNotFound indicates a question-bank set ID that does not exist.
	ErrSetNotFound = errors.New("question set not found")
)
