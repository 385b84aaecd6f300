package nat

import (
	"errors"
	"fmt"
)

var (
	ErrTruncatedHeader    = errors.New("truncated record header")
	ErrTruncatedField     = errors.New("truncated field")
	ErrUnknownType        = errors.New("unknown primitive type")
	ErrUnknownRecordClass = errors.New("unknown record class")
	ErrTruncatedStream    = errors.New("truncated record stream")
	ErrMissingAuxiliary   = errors.New("missing auxiliary record")
	ErrDuplicateAuxiliary = errors.New("duplicate auxiliary record")
	ErrUndecodedAuxiliary = errors.New("auxiliary record not decoded")
	ErrThresholdTooSmall  = errors.New("split threshold too small")
	ErrDuplicatePartName  = errors.New("split template yields duplicate part names")
	ErrRecordNotFound     = errors.New("record not found")
	ErrInvalidSelection   = errors.New("invalid record selection")
	ErrInvalidMPHR        = errors.New("invalid main product header")
	ErrNoProduct          = errors.New("no product driver")
	ErrFieldNotFound      = errors.New("field not found")
	ErrInvalidShape       = errors.New("invalid field shape")
	ErrInvalidRecordSize  = errors.New("invalid record size")
)

// TruncatedFieldError reports a field that runs past the end of its span.
type TruncatedFieldError struct {
	Field  string
	Offset int
	Need   int
	Have   int
}

func (e *TruncatedFieldError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%v: need %d bytes, have %d", ErrTruncatedField, e.Need, e.Have)
	}
	return fmt.Sprintf("%v: %s at offset %d needs %d bytes, have %d", ErrTruncatedField, e.Field, e.Offset, e.Need, e.Have)
}

func (e *TruncatedFieldError) Unwrap() error { return ErrTruncatedField }

// TruncatedStreamError reports a record whose declared extent passes the end of the stream.
type TruncatedStreamError struct {
	Offset int
	Need   int
	Have   int
}

func (e *TruncatedStreamError) Error() string {
	return fmt.Sprintf("%v: record at offset %d needs %d bytes, %d remain", ErrTruncatedStream, e.Offset, e.Need, e.Have)
}

func (e *TruncatedStreamError) Unwrap() error { return ErrTruncatedStream }

type UnknownTypeError struct {
	Type Type
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("%v: tag %d", ErrUnknownType, uint8(e.Type))
}

func (e *UnknownTypeError) Unwrap() error { return ErrUnknownType }

// MissingAuxiliaryStateError names the header-prefix record that body decoding needed.
type MissingAuxiliaryStateError struct {
	Class    RecordClass
	Subclass uint8
}

func (e *MissingAuxiliaryStateError) Error() string {
	return fmt.Sprintf("%v: %s subclass %d", ErrMissingAuxiliary, e.Class, e.Subclass)
}

func (e *MissingAuxiliaryStateError) Unwrap() error { return ErrMissingAuxiliary }

type ThresholdTooSmallError struct {
	Threshold int64
	Required  int64
}

func (e *ThresholdTooSmallError) Error() string {
	return fmt.Sprintf("%v: %d bytes, need at least %d", ErrThresholdTooSmall, e.Threshold, e.Required)
}

func (e *ThresholdTooSmallError) Unwrap() error { return ErrThresholdTooSmall }
