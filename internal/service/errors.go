package service

import "errors"

var (
	ErrTimerNotFound       = errors.New("timer not found")
	ErrInvalidTimer        = errors.New("invalid timer")
	ErrDeviceNotFound      = errors.New("device not found")
	ErrEmergencyActive     = errors.New("emergency shutdown is active, reset it first")
	ErrShutdownIncomplete  = errors.New("shutdown incomplete")
	ErrPartialWrite        = errors.New("some devices could not be switched")
	ErrWriteFailed         = errors.New("remote write failed")
	ErrControllerStopped   = errors.New("controller is not running")
	ErrInvalidRange        = errors.New("invalid range")
	ErrInvalidSubscription = errors.New("subscription needs endpoint, p256dh and auth")
)
