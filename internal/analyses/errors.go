package analyses

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrUnknownSection = errors.New("unknown section")
)

const (
	ErrorCodeValidation = "VALIDATION_ERROR"
	ErrorCodeProvider   = "PROVIDER_ERROR"
	ErrorCodeNormalize  = "NORMALIZATION_ERROR"
	ErrorCodeSchema     = "SCHEMA_MISMATCH"
	ErrorCodeDependency = "DEPENDENCY_FAILED"
	ErrorCodeStorage    = "STORAGE_ERROR"
	ErrorCodeInternal   = "INTERNAL_ERROR"
)
