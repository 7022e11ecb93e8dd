package tiering

import (
	"fmt"
	"strings"
)

// NoTruckTypeColumnsError aborts a run when no loaded column matches the
// truck-type vocabulary.
type NoTruckTypeColumnsError struct {
	Expected []string
	Found    []string
}

func (e *NoTruckTypeColumnsError) Error() string {
	return fmt.Sprintf("no truck type columns found: expected any of [%s], found columns [%s]",
		strings.Join(e.Expected, ", "), strings.Join(e.Found, ", "))
}

// MissingColumnsError aborts a run when no loaded table carries every
// required identifying column.
type MissingColumnsError struct {
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("required columns missing from every table: [%s]", strings.Join(e.Missing, ", "))
}
