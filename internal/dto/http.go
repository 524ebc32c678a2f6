package dto

import (
	"errors"
	"net/http"
	"strings"

	goValidator "github.com/go-playground/validator/v10"
)

type BaseResponse struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Data    interface{}       `json:"data,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func NewBaseResponse(code int, message string, data interface{}) *BaseResponse {
	return &BaseResponse{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

func NewBadRequestResponse(message string) *BaseResponse {
	return NewBaseResponse(http.StatusBadRequest, message, nil)
}

func NewSuccessResponse(message string, data interface{}) *BaseResponse {
	return NewBaseResponse(http.StatusOK, message, data)
}

func NewCreatedResponse(message string, data interface{}) *BaseResponse {
	return NewBaseResponse(http.StatusCreated, message, data)
}

func NewErrorResponse(code int, message string) *BaseResponse {
	return NewBaseResponse(code, message, nil)
}

// NewValidationResponse reports each failed field with the rule it broke,
// keyed by the lower-cased field name.
func NewValidationResponse(err error) *BaseResponse {
	resp := NewBadRequestResponse("invalid request")
	var fieldErrs goValidator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return resp
	}
	resp.Errors = make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		resp.Errors[strings.ToLower(fe.Field())] = fe.Tag()
	}
	return resp
}
