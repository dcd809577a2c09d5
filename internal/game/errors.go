package game

import "errors"

// Game errors
var (
	ErrUnknownPlayer = errors.New("unknown player")
	ErrUnknownShip   = errors.New("unknown ship")
	ErrNotWater      = errors.New("position is not on water")
	ErrShipLimit     = errors.New("ship limit reached")
	ErrNoPath        = errors.New("no path to destination")
	ErrNoSelection   = errors.New("no ships selected")
	ErrOutOfRange    = errors.New("target out of range")
	ErrInvalidName   = errors.New("invalid name")
	ErrPlayerExists  = errors.New("player already exists")
	ErrUnknownIntent = errors.New("unknown intent")
)
