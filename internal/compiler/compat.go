package compiler

import (
	"github.com/foundry-zero/purec/internal/graph"
	"github.com/foundry-zero/purec/internal/report"
)

// checkCompatibility asserts that a computed result fits a declared one.
// stub prefixes the message so the failure names its origin.
func checkCompatibility(actualType graph.Type, actualMult *graph.Multiplicity, sigType graph.Type, sigMult *graph.Multiplicity, stub string, src report.SourceInformation) error {
	if err := checkTypeCompatibility(actualType, sigType, stub, src); err != nil {
		return err
	}
	return checkMultiplicityCompatibility(actualMult, sigMult, stub, src)
}

func checkTypeCompatibility(actual, sig graph.Type, stub string, src report.SourceInformation) error {
	if sig == nil || actual == sig || graph.IsSubType(actual, sig) {
		return nil
	}
	return report.Errorf(src, "%s - Type error: '%s' is not a subtype of '%s'", stub, graph.PrintTypeName(actual), graph.PrintTypeName(sig))
}

// checkMultiplicityCompatibility requires the declared multiplicity to
// subsume the computed one; equality is not required.
func checkMultiplicityCompatibility(actual, sig *graph.Multiplicity, stub string, src report.SourceInformation) error {
	if sig == nil || actual == nil || sig.Subsumes(actual) {
		return nil
	}
	return report.Errorf(src, "%s - Multiplicity error: %s doesn't subsumes %s", stub, sig, actual)
}
