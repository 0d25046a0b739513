package game

import "fmt"

// ErrAlreadyFinished is returned for any play against a Finished session.
type ErrAlreadyFinished struct {
	GameID uint64
}

func (e *ErrAlreadyFinished) Error() string {
	return fmt.Sprintf("game %d is already finished", e.GameID)
}

func IsAlreadyFinished(err error) bool {
	_, ok := err.(*ErrAlreadyFinished)
	return ok
}

// ErrNotCurrentMover is returned when a participant plays out of turn.
type ErrNotCurrentMover struct {
	Account string
	GameID  uint64
}

func (e *ErrNotCurrentMover) Error() string {
	return fmt.Sprintf("no access: %s is not the current mover in game %d", e.Account, e.GameID)
}

func IsNotCurrentMover(err error) bool {
	_, ok := err.(*ErrNotCurrentMover)
	return ok
}

// ErrNotParticipant is returned when the caller holds neither player slot.
type ErrNotParticipant struct {
	Account string
	GameID  uint64
}

func (e *ErrNotParticipant) Error() string {
	return fmt.Sprintf("%s is not a player in game %d", e.Account, e.GameID)
}

func IsNotParticipant(err error) bool {
	_, ok := err.(*ErrNotParticipant)
	return ok
}
