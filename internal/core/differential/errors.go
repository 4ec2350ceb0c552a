package differential

import "errors"

// Construction errors. Step itself never fails.
var (
	ErrNoGears         = errors.New("gear table is empty")
	ErrNeutralMoves    = errors.New("first gear must be neutral with zero speed")
	ErrGearLabel       = errors.New("gear label is required")
	ErrDuplicateGear   = errors.New("duplicate gear label")
	ErrInvalidConstant = errors.New("invalid differential constant")
)
