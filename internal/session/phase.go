package session

import "errors"

// Phase is a step of the reading ritual
type Phase string

const (
	Lobby     Phase = "LOBBY"
	Library   Phase = "LIBRARY"
	Inquiry   Phase = "INQUIRY"
	Shuffling Phase = "SHUFFLING"
	Cutting   Phase = "CUTTING"
	Drawing   Phase = "DRAWING"
	Revealing Phase = "REVEALING"
	Reading   Phase = "READING"
)

// Barrier inputs gating REVEALING -> READING
const (
	inputReading = "reading"
	inputReveal  = "reveal"
)

var (
	ErrEmptyQuestion  = errors.New("question is empty")
	ErrNotSignedIn    = errors.New("not signed in")
	ErrBusy           = errors.New("an inquiry is already being processed")
	ErrQuotaExhausted = errors.New("usage quota exhausted")
	ErrWrongPhase     = errors.New("operation not allowed in the current phase")
	ErrDrawLocked     = errors.New("a card confirmation is still settling")
	ErrUnknownCard    = errors.New("card is not in the draw pile")
	ErrInvalidCount   = errors.New("card count must be between 1 and 3")
)
