package predictor

import (
	"errors"
	"fmt"
	"strings"
)

const (
	StageLoad      = "load"
	StageNormalize = "normalize"
	StagePredict   = "predict"
)

// SchemaMismatchError means a vector's width or column order disagrees with
// what a fitted artifact expects.
type SchemaMismatchError struct {
	Stage    string
	Artifact string
	Expected []string
	Got      []string
}

func (e SchemaMismatchError) Error() string {
	if len(e.Expected) != len(e.Got) {
		return fmt.Sprintf("%s: %s expects %d features, got %d", e.Stage, e.Artifact, len(e.Expected), len(e.Got))
	}
	for i := range e.Expected {
		if e.Expected[i] != e.Got[i] {
			return fmt.Sprintf("%s: %s expects %q at position %d, got %q", e.Stage, e.Artifact, e.Expected[i], i, e.Got[i])
		}
	}
	return fmt.Sprintf("%s: %s feature mismatch [%s]", e.Stage, e.Artifact, strings.Join(e.Got, ","))
}

func IsSchemaMismatch(err error) bool {
	var sm SchemaMismatchError
	return errors.As(err, &sm)
}

// ArtifactUnavailableError means a classifier or scaler could not be read,
// fetched or decoded.
type ArtifactUnavailableError struct {
	Path string
	Err  error
}

func (e ArtifactUnavailableError) Error() string {
	return fmt.Sprintf("artifact %s unavailable: %v", e.Path, e.Err)
}

func (e ArtifactUnavailableError) Unwrap() error {
	return e.Err
}

func IsArtifactUnavailable(err error) bool {
	var au ArtifactUnavailableError
	return errors.As(err, &au)
}

func checkOrder(stage, artifact string, expected, got []string) error {
	if len(expected) != len(got) {
		return SchemaMismatchError{Stage: stage, Artifact: artifact, Expected: expected, Got: got}
	}
	for i := range expected {
		if expected[i] != got[i] {
			return SchemaMismatchError{Stage: stage, Artifact: artifact, Expected: expected, Got: got}
		}
	}
	return nil
}
