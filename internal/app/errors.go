package service

import "errors"

var (
	ErrNotStarted  = errors.New("service not started")
	ErrScannerBusy = errors.New("scanner flow already running")
	ErrNoReview    = errors.New("profile review not open")
	ErrNoPrompter  = errors.New("no prompter")
)
