package graph

import "fmt"

// Stage tracks how far an element has progressed through the build passes.
type Stage int

const (
	StageDeclared Stage = iota
	StageStructured
	StageMilestoningResolved
	StageBodiesCompiled
)

func (s Stage) String() string {
	switch s {
	case StageDeclared:
		return "Declared"
	case StageStructured:
		return "Structured"
	case StageMilestoningResolved:
		return "MilestoningResolved"
	case StageBodiesCompiled:
		return "BodiesCompiled"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// Staged is embedded by elements whose fields are filled across passes.
type Staged struct {
	stage Stage
}

// Stage returns the current stage.
func (s *Staged) Stage() Stage { return s.stage }

// Advance moves to a later stage. Moving backwards or staying put is an
// ordering bug in the caller and is reported as an error.
func (s *Staged) Advance(to Stage) error {
	if to <= s.stage {
		return fmt.Errorf("invalid stage transition from %s to %s", s.stage, to)
	}
	s.stage = to
	return nil
}
