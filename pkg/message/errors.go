package message

import (
	"errors"
	"fmt"
)

// ErrTypeConversion matches every content conversion failure via errors.Is.
var ErrTypeConversion = errors.New("message: type conversion")

// ConversionError reports content whose textual representation could not be produced.
type ConversionError struct {
	Type   string
	Detail string
}

func (e *ConversionError) Error() string {
	if e == nil {
		return ""
	}
	if e.Detail == "" {
		return fmt.Sprintf("message: content of type %s cannot be converted to string", e.Type)
	}

	return fmt.Sprintf("message: content of type %s cannot be converted to string: %s", e.Type, e.Detail)
}

// Is reports ErrTypeConversion as the category of every ConversionError.
func (e *ConversionError) Is(target error) bool {
	return target == ErrTypeConversion
}

func conversionError(value any, detail any) error {
	return &ConversionError{Type: fmt.Sprintf("%T", value), Detail: fmt.Sprint(detail)}
}
