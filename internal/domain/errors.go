package domain

import "errors"

// Kind classifies a user-facing failure so transports can map it to a status code.
type Kind string

const (
	KindValidation Kind = "validation"
	KindAuth       Kind = "auth"
	KindHandoff    Kind = "handoff"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
)

// Stable error codes returned to clients.
const (
	CodeEmptyCart              = "EMPTY_CART"
	CodeInvalidLineItem        = "INVALID_LINE_ITEM"
	CodeDeliveryMethodRequired = "DELIVERY_METHOD_REQUIRED"
	CodeCustomerInfoRequired   = "CUSTOMER_INFO_REQUIRED"
	CodeInvalidDNI             = "INVALID_DNI"
	CodeShippingInfoRequired   = "SHIPPING_INFO_REQUIRED"
	CodePickupInfoRequired     = "PICKUP_INFO_REQUIRED"
	CodeInvalidQuantity        = "INVALID_QUANTITY"
	CodeOutOfStock             = "OUT_OF_STOCK"
	CodeInvalidProduct         = "INVALID_PRODUCT"
	CodeInvalidStatus          = "INVALID_STATUS"
	CodeIllegalTransition      = "ILLEGAL_TRANSITION"
	CodeMissingInput           = "MISSING_INPUT"
	CodeInvalidCredentials     = "INVALID_CREDENTIALS"
	CodeUnauthorizedHandoff    = "UNAUTHORIZED_HANDOFF"
	CodeHandoffFailed          = "HANDOFF_FAILED"
	CodeNotFound               = "NOT_FOUND"
	CodeAlreadyExists          = "ALREADY_EXISTS"
	CodeTagInUse               = "TAG_IN_USE"
	CodeIdempotencyKeyReused   = "IDEMPOTENCY_KEY_REUSED"
	CodeStaleStatus            = "STALE_STATUS"
)

// Error is a failure that is safe to show to the caller.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches errors by code so sentinel values work with errors.Is.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

func NewValidationError(code, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message}
}

func NewNotFoundError(message string) *Error {
	return &Error{Kind: KindNotFound, Code: CodeNotFound, Message: message}
}

func NewConflictError(code, message string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: message}
}

// AsError extracts a domain error from err's chain.
func AsError(err error) (*Error, bool) {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr, true
	}
	return nil, false
}

var (
	// ErrInvalidCredentials covers unknown email, wrong password and active lockout alike.
	ErrInvalidCredentials = &Error{Kind: KindAuth, Code: CodeInvalidCredentials, Message: "invalid email or password"}
	ErrMissingInput       = &Error{Kind: KindValidation, Code: CodeMissingInput, Message: "email and password are required"}

	// ErrUnauthorizedHandoff is the tokenless state: the shopper must start the purchase from WhatsApp first.
	ErrUnauthorizedHandoff = &Error{
		Kind:    KindHandoff,
		Code:    CodeUnauthorizedHandoff,
		Message: "Necesitamos verificar tu pedido desde WhatsApp antes de continuar",
	}
	ErrHandoffFailed = &Error{
		Kind:    KindHandoff,
		Code:    CodeHandoffFailed,
		Message: "No pudimos enviar tu pedido, intentá nuevamente",
	}

	ErrEmptyCart              = NewValidationError(CodeEmptyCart, "El carrito está vacío")
	ErrInvalidLineItem        = NewValidationError(CodeInvalidLineItem, "El carrito contiene productos inválidos")
	ErrDeliveryMethodRequired = NewValidationError(CodeDeliveryMethodRequired, "Elegí envío o retiro en sucursal")
	ErrCustomerInfoRequired   = NewValidationError(CodeCustomerInfoRequired, "El nombre y el DNI son obligatorios")
	ErrInvalidDNI             = NewValidationError(CodeInvalidDNI, "El DNI debe tener 8 dígitos")
	ErrShippingInfoRequired   = NewValidationError(CodeShippingInfoRequired, "Para envío, completá Código Postal y Dirección")
	ErrPickupInfoRequired     = NewValidationError(CodePickupInfoRequired, "Para retiro, elegí provincia, ciudad y sucursal válidas")
	ErrInvalidQuantity        = NewValidationError(CodeInvalidQuantity, "quantity must be at least 1")
	ErrOutOfStock             = NewValidationError(CodeOutOfStock, "variant is out of stock")

	ErrInvalidStatus     = NewValidationError(CodeInvalidStatus, "unknown order status")
	ErrIllegalTransition = NewConflictError(CodeIllegalTransition, "order status transition is not allowed")
	ErrStaleStatus       = NewConflictError(CodeStaleStatus, "order status changed concurrently, reload and retry")

	ErrIdempotencyKeyReused = NewConflictError(CodeIdempotencyKeyReused, "Idempotency-Key was already used for a different order")
)
