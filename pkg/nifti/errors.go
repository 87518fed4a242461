package nifti

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by this package matches exactly one of
// ErrFile, ErrValidation or ErrDataType under errors.Is, except ErrReleased.
var (
	ErrFile            = errors.New("nifti: file error")
	ErrValidation      = errors.New("nifti: validation error")
	ErrDataType        = errors.New("nifti: datatype error")
	ErrUnsupportedType = errors.New("unsupported datatype")
	ErrReleased        = errors.New("nifti: buffer already released")
)

// FileError reports a failure to open or fully read a file.
type FileError struct {
	Op   string
	Path string
	Err  error
}

func (e *FileError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("nifti: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("nifti: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

func (e *FileError) Is(target error) bool { return target == ErrFile }

// ValidationError reports a header that does not follow the NIfTI-1 layout.
// Got holds the offending bytes or value for diagnostics.
type ValidationError struct {
	Field string
	Got   any
}

func (e *ValidationError) Error() string {
	if b, ok := e.Got.([]byte); ok {
		return fmt.Sprintf("nifti: invalid %s: %q", e.Field, b)
	}
	return fmt.Sprintf("nifti: invalid %s: %v", e.Field, e.Got)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// DataTypeError reports a datatype that cannot be sized, converted or exported.
type DataTypeError struct {
	Type DataType
	Op   string
	Err  error
}

func (e *DataTypeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("nifti: %s: datatype %s", e.Op, e.Type)
	}
	return fmt.Sprintf("nifti: %s: datatype %s: %v", e.Op, e.Type, e.Err)
}

func (e *DataTypeError) Unwrap() error { return e.Err }

func (e *DataTypeError) Is(target error) bool { return target == ErrDataType }
