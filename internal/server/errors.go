package server

import "errors"

// Server errors
var (
	ErrInstanceLimit    = errors.New("instance limit reached")
	ErrInstanceNotFound = errors.New("instance not found")
	ErrInstanceFull     = errors.New("instance is full")
	ErrInstanceStopped  = errors.New("instance stopped")
	ErrUnknownPreset    = errors.New("unknown world preset")
	ErrSendBufferFull   = errors.New("send buffer full")
	ErrConnClosed       = errors.New("connection closed")
)
