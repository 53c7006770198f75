// Package response holds the JSON envelope returned by every HTTP handler and
// the helpers that decode, validate and render requests.
package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"
)

// Response is the envelope of every JSON answer.
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// ErrorResponse documents failures in the swagger annotations.
type ErrorResponse struct {
	Status string `json:"status" example:"Error"`
	Error  string `json:"error" example:"invalid request body"`
}

const (
	StatusOK    = "OK"
	StatusError = "Error"
)

func OKWithData(data any) Response {
	return Response{Status: StatusOK, Data: data}
}

func Error(msg string) Response {
	return Response{Status: StatusError, Error: msg}
}

// ValidationError joins every failed rule into one readable message.
func ValidationError(errs validator.ValidationErrors) Response {
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		field := err.Field()
		switch err.ActualTag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("field %s is a required field", field))
		case "email":
			msgs = append(msgs, fmt.Sprintf("field %s must be a valid email", field))
		case "uuid":
			msgs = append(msgs, fmt.Sprintf("field %s must be a uuid", field))
		case "numeric":
			msgs = append(msgs, fmt.Sprintf("field %s can contain only numbers", field))
		case "min", "max", "len":
			msgs = append(msgs, fmt.Sprintf("field %s must satisfy %s=%s", field, err.ActualTag(), err.Param()))
		case "gt", "gte", "lt", "lte":
			msgs = append(msgs, fmt.Sprintf("field %s must be %s %s", field, err.ActualTag(), err.Param()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("field %s must be one of [%s]", field, err.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("field %s is not valid", field))
		}
	}
	return Response{Status: StatusError, Error: strings.Join(msgs, ", ")}
}

// JSON renders v with the given status code.
func JSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

// OK renders data in a success envelope.
func OK(w http.ResponseWriter, r *http.Request, data any) {
	JSON(w, r, http.StatusOK, OKWithData(data))
}

// Fail renders msg in an error envelope.
func Fail(w http.ResponseWriter, r *http.Request, status int, msg string) {
	JSON(w, r, status, Error(msg))
}

// ErrBadRequest is returned by Decode when the body is not valid JSON.
var ErrBadRequest = errors.New("invalid request body")

// Decode reads the JSON body into dst and validates it. On failure it writes
// the error response (400 for malformed JSON, 422 for failed rules) and
// returns the error.
func Decode(w http.ResponseWriter, r *http.Request, v *validator.Validate, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		Fail(w, r, http.StatusBadRequest, ErrBadRequest.Error())
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	if err := v.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			JSON(w, r, http.StatusUnprocessableEntity, ValidationError(verrs))
		} else {
			Fail(w, r, http.StatusUnprocessableEntity, err.Error())
		}
		return err
	}
	return nil
}
