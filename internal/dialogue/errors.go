package dialogue

import (
	"errors"
	"fmt"
)

// ErrPrecondition is wrapped by every error caused by calling the controller out of order.
var ErrPrecondition = errors.New("dialogue precondition violated")

var (
	ErrNotStarted              = fmt.Errorf("%w: session not started", ErrPrecondition)
	ErrAlreadyStarted          = fmt.Errorf("%w: session already started", ErrPrecondition)
	ErrEmptyProblemStatement   = fmt.Errorf("%w: problem statement is empty", ErrPrecondition)
	ErrNoPendingQuestion       = fmt.Errorf("%w: no question is awaiting a response", ErrPrecondition)
	ErrNotAwaitingConfirmation = fmt.Errorf("%w: ticket is not awaiting confirmation", ErrPrecondition)
)

var (
	ErrUnknownField    = errors.New("unknown slot field")
	ErrIncompleteSlots = errors.New("required slots are missing")
)
