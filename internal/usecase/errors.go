package usecase

import (
	"errors"
	"fmt"
	"net/http"
)

// 安定したエラー種別。HTTPステータスとは別にクライアントへ返す。
const (
	KindNotFound          = "not_found"
	KindInsufficientStock = "insufficient_stock"
	KindInvalidIdentity   = "invalid_identity"
	KindConflict          = "conflict"
	KindValidation        = "validation"
	KindUnauthorized      = "unauthorized"
	KindForbidden         = "forbidden"
	KindInternal          = "internal"
)

type HTTPError struct {
	Status  int
	Kind    string
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Kind, e.Message)
}

func NewHTTPError(status int, kind string, message string) error {
	return &HTTPError{
		Status:  status,
		Kind:    kind,
		Message: message,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

// よく使うエラーのショートカット

func errNotFound(message string) error {
	return NewHTTPError(http.StatusNotFound, KindNotFound, message)
}

func errInsufficientStock(productName string) error {
	return NewHTTPError(http.StatusBadRequest, KindInsufficientStock, fmt.Sprintf("insufficient stock for %s", productName))
}

func errInvalidIdentity() error {
	return NewHTTPError(http.StatusBadRequest, KindInvalidIdentity, "session id required for guest carts")
}

func errValidation(message string) error {
	return NewHTTPError(http.StatusBadRequest, KindValidation, message)
}

func errConflict(message string) error {
	return NewHTTPError(http.StatusConflict, KindConflict, message)
}

func errInternal() error {
	return NewHTTPError(http.StatusInternalServerError, KindInternal, "db error")
}
