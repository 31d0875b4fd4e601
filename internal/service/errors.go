package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/quillpost/internal/db"
)

// ErrorKind 区分业务错误的类别，handler 据此映射 HTTP 状态码。
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindNotFound
	KindConflict
	KindValidation
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindValidation:
		return "validation"
	default:
		return "internal"
	}
}

var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("validation failed")
	ErrInternal   = errors.New("internal error")
)

// Error 是带上下文的业务错误，errors.Is 可与上面的哨兵错误匹配。
type Error struct {
	Kind      ErrorKind
	Op        string
	Message   string
	ArticleID uint
	UserID    uint
	Relation  db.Relation
	Err       error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Message != "" {
		b.WriteString(e.Message)
	} else {
		b.WriteString(e.Kind.String())
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is 让 errors.Is(err, ErrConflict) 这类判断按类别成立。
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrConflict:
		return e.Kind == KindConflict
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrInternal:
		return e.Kind == KindInternal
	}
	return false
}

// KindOf 返回错误的类别，非 *Error 一律视为内部错误。
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func validationError(op, format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: fmt.Sprintf(format, args...)}
}

func internalError(op string, err error) *Error {
	return &Error{Kind: KindInternal, Op: op, Err: err}
}
