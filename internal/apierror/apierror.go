// Package apierror carries request failures from services to the HTTP layer.
package apierror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindReference
	KindConflict
	KindUnauthorized
	KindForbidden
	KindTooManyRequests
)

var statusByKind = map[Kind]int{
	KindInternal:        http.StatusInternalServerError,
	KindValidation:      http.StatusBadRequest,
	KindNotFound:        http.StatusNotFound,
	KindReference:       http.StatusUnprocessableEntity,
	KindConflict:        http.StatusConflict,
	KindUnauthorized:    http.StatusUnauthorized,
	KindForbidden:       http.StatusForbidden,
	KindTooManyRequests: http.StatusTooManyRequests,
}

// Error is what handlers turn into a response. Err keeps the cause for logs
// and is never sent to clients.
type Error struct {
	Kind    Kind                `json:"-"`
	Message string              `json:"error"`
	Fields  map[string][]string `json:"fields,omitempty"`
	Err     error               `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// QtyProblem describes a quantity outside the stored precision.
const QtyProblem = "deve estar entre 0 e 999999999.999, com até 3 casas decimais"

// Code is the HTTP status for the error.
func (e *Error) Code() int {
	if s, ok := statusByKind[e.Kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Add records a problem with one field.
func (e *Error) Add(field, problem string) *Error {
	if e.Fields == nil {
		e.Fields = map[string][]string{}
	}
	e.Fields[field] = append(e.Fields[field], problem)
	return e
}

func New(kind Kind, msg string, args ...any) *Error {
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	return &Error{Kind: kind, Message: msg}
}

func Wrap(kind Kind, err error, msg string) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func Validation(msg string) *Error   { return New(KindValidation, msg) }
func NotFound(msg string) *Error     { return New(KindNotFound, msg) }
func Conflict(msg string) *Error     { return New(KindConflict, msg) }
func Unauthorized(msg string) *Error { return New(KindUnauthorized, msg) }
func Forbidden(msg string) *Error    { return New(KindForbidden, msg) }

func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "Erro interno", Err: err}
}

func MalformedJSON() *Error { return Validation("JSON inválido") }
func InvalidID() *Error     { return Validation("id inválido") }

// From returns err as an *Error, treating anything else as internal.
func From(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Internal(err)
}

// FromValidationError turns validator errors into a field-by-field report.
func FromValidationError(err error) *Error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return nil
	}

	out := Validation("Dados inválidos")
	for _, fe := range ve {
		field := fieldName(fe)
		switch fe.Tag() {
		case "required":
			out.Add(field, "campo obrigatório")
		case "max":
			out.Add(field, "valor muito longo, máximo "+fe.Param())
		case "min":
			out.Add(field, "valor muito curto, mínimo "+fe.Param())
		case "gt", "gte":
			out.Add(field, "deve ser maior ou igual a "+fe.Param())
		case "qty":
			out.Add(field, QtyProblem)
		case "email":
			out.Add(field, "e-mail inválido")
		case "cnpj":
			out.Add(field, "CNPJ inválido")
		default:
			out.Add(field, "valor inválido")
		}
	}
	return out
}

// fieldName drops the top-level struct name so nested fields read like
// "processes[0].name". Anonymous structs have no such segment; it is
// recognised by being spelled the same in both namespaces.
func fieldName(fe validator.FieldError) string {
	ns, sns := fe.Namespace(), fe.StructNamespace()
	i, j := strings.IndexByte(ns, '.'), strings.IndexByte(sns, '.')
	if i >= 0 && j >= 0 && ns[:i] == sns[:j] {
		return ns[i+1:]
	}
	return ns
}
