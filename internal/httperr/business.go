package httperr

import "errors"

type Kind string

const (
	KindBusiness     Kind = "business"
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindForbidden    Kind = "forbidden"
	KindConflict     Kind = "conflict"
	KindUnauthorized Kind = "unauthorized"
)

type BusinessError struct {
	Kind    Kind
	Code    string
	Details map[string]any
}

func (e BusinessError) Error() string {
	return e.Code
}

// ErrBusiness sinaliza regra de negócio violada (ex.: transição de status inválida).
func ErrBusiness(code string) error {
	return BusinessError{Kind: KindBusiness, Code: code}
}

func ErrValidation(code string) error {
	return BusinessError{Kind: KindValidation, Code: code}
}

func ErrNotFound(code string) error {
	return BusinessError{Kind: KindNotFound, Code: code}
}

func ErrForbidden(code string) error {
	return BusinessError{Kind: KindForbidden, Code: code}
}

func ErrUnauthorized(code string) error {
	return BusinessError{Kind: KindUnauthorized, Code: code}
}

// ErrConflict carrega o registro conflitante em details para o cliente resolver.
func ErrConflict(code string, details map[string]any) error {
	return BusinessError{Kind: KindConflict, Code: code, Details: details}
}

func IsBusiness(err error, code string) bool {
	var be BusinessError
	if errors.As(err, &be) {
		return be.Code == code
	}
	return false
}

func KindOf(err error) (Kind, bool) {
	var be BusinessError
	if errors.As(err, &be) {
		return be.Kind, true
	}
	return "", false
}
