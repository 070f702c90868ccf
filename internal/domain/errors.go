package domain

import "errors"

var (
	ErrNotMember      = errors.New("identity is not a member of the room")
	ErrUnknownMessage = errors.New("unknown message id")
	ErrRoomNotFound   = errors.New("room not found")
	ErrEmptyBody      = errors.New("empty message body")
	ErrBodyTooLong    = errors.New("message body too long")
)
