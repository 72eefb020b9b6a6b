package sim

import "errors"

var (
	ErrInvalidConfig    = errors.New("invalid config")
	ErrInvalidAgentType = errors.New("invalid agent type")
	ErrUnknownAgentType = errors.New("unknown agent type")
	ErrMissionTornDown  = errors.New("mission torn down")
)
