package faults

import "fmt"

// SizeError reports a payload of the wrong length. Subject names the
// offending side(s), e.g. "left matrix has ". Index is the frame position
// for frame payloads and -1 otherwise.
type SizeError struct {
	Subject string
	Size    int
	Index   int
}

// InvalidSize builds a SizeError for a non-frame payload.
func InvalidSize(subject string, size int) *SizeError {
	return &SizeError{Subject: subject, Size: size, Index: -1}
}

// InvalidFrameSize builds a SizeError for frame number index.
func InvalidFrameSize(subject string, size, index int) *SizeError {
	return &SizeError{Subject: subject, Size: size, Index: index}
}

func (e *SizeError) Error() string {
	msg := fmt.Sprintf("%san invalid vector size of %d", e.Subject, e.Size)
	if e.Index >= 0 {
		msg += fmt.Sprintf(" at index %d", e.Index)
	}
	return msg
}

func (e *SizeError) Unwrap() error {
	if e.Index >= 0 {
		return ErrInvalidFrameSize
	}
	return ErrInvalidSize
}

// ColumnError reports a column index outside 0..8.
type ColumnError struct {
	Column int
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("invalid column number %d (must be between 0 and 8)", e.Column)
}

func (e *ColumnError) Unwrap() error { return ErrInvalidColumn }

// SideSubject renders the offending-side prefix used by SizeError.
func SideSubject(left, right bool) string {
	switch {
	case left && right:
		return "both matrixes have "
	case left:
		return "left matrix has "
	case right:
		return "right matrix has "
	default:
		return ""
	}
}
