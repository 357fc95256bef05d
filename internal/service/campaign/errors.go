package campaign

import "errors"

// Sentinel errors for the campaign service layer.
var (
	ErrNotFound        = errors.New("campaign not found")
	ErrNameRequired    = errors.New("campaign name is required")
	ErrMessageRequired = errors.New("message template is required")
	ErrSegmentRequired = errors.New("segment id is required")
	ErrSegmentNotFound = errors.New("segment not found")

	// ErrLaunchInProgress is returned when another launch already holds the
	// per-segment launch lock.
	ErrLaunchInProgress = errors.New("a launch for this segment is already in progress")
)
