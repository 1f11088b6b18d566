package models

import "errors"

var (
	ErrNotFound                = errors.New("not found")
	ErrForbidden               = errors.New("not authorized")
	ErrAlreadyExists           = errors.New("already exists")
	ErrEditWindowExpired       = errors.New("edit window expired")
	ErrInvalidPayload          = errors.New("invalid payload")
	ErrInvalidUserID           = errors.New("invalid user ID")
	ErrInvalidConversationID   = errors.New("invalid conversation ID")
	ErrEmptyContent            = errors.New("message content is empty")
	ErrInvalidNotificationKind = errors.New("invalid notification kind")
	ErrSelfAction              = errors.New("cannot target yourself")
	ErrRequestNotPending       = errors.New("request is no longer pending")
)
