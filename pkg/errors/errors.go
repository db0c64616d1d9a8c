package errors

import (
	stdErrors "errors"
	"fmt"
)

type Code string

const (
	CodeValidation       Code = "VALIDATION_ERROR"
	CodeNotFound         Code = "NOT_FOUND"
	CodeConflict         Code = "CONFLICT"
	CodeMediaUnavailable Code = "MEDIA_UNAVAILABLE"
	CodeInvalidIntent    Code = "INVALID_INTENT"
	CodePaymentCancelled Code = "PAYMENT_CANCELLED"
	CodePaymentFailed    Code = "PAYMENT_FAILED"
	CodeStorageCorrupt   Code = "STORAGE_CORRUPT"
	CodeDependency       Code = "DEPENDENCY_ERROR"
	CodeInternal         Code = "INTERNAL_ERROR"
)

// Metadata describes how a code should be handled by callers: whether the
// condition is recoverable in place and whether the message may be surfaced
// to the user as-is.
type Metadata struct {
	Recoverable   bool
	UserFacing    bool
	PublicMessage string
}

var metadataByCode = map[Code]Metadata{
	CodeValidation: {
		Recoverable:   false,
		UserFacing:    true,
		PublicMessage: "validation failed",
	},
	CodeNotFound: {
		Recoverable:   false,
		UserFacing:    true,
		PublicMessage: "resource not found",
	},
	CodeConflict: {
		Recoverable:   false,
		UserFacing:    true,
		PublicMessage: "conflict detected",
	},
	CodeMediaUnavailable: {
		Recoverable:   true,
		UserFacing:    true,
		PublicMessage: "media unavailable",
	},
	CodeInvalidIntent: {
		Recoverable:   false,
		UserFacing:    true,
		PublicMessage: "invalid payment intent",
	},
	CodePaymentCancelled: {
		Recoverable:   true,
		UserFacing:    true,
		PublicMessage: "payment cancelled",
	},
	CodePaymentFailed: {
		Recoverable:   false,
		UserFacing:    true,
		PublicMessage: "payment failed",
	},
	CodeStorageCorrupt: {
		Recoverable:   true,
		UserFacing:    false,
		PublicMessage: "stored state unreadable",
	},
	CodeDependency: {
		Recoverable:   true,
		UserFacing:    false,
		PublicMessage: "dependency unavailable",
	},
	CodeInternal: {
		Recoverable:   false,
		UserFacing:    false,
		PublicMessage: "internal error",
	},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.Code() == code
}
