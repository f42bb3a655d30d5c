package rpcstore

import "fmt"

var errMalformed = fmt.Errorf("malformed request: expected a JSON array [func, arg...]")

func argCountError(want, got int) error {
	return fmt.Errorf("expected %d arguments, got %d", want, got)
}

func argTypeError(index int, cause error) error {
	return fmt.Errorf("argument %d: %w", index, cause)
}

func unknownFunctionError(fn string) error {
	return fmt.Errorf("unknown function: %s", fn)
}
