package common

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

// structValidator caches struct metadata and is safe for concurrent use
var structValidator = validator.New()

// ValidateStruct checks the `validate` tags of i.
func ValidateStruct(i interface{}) error {
	return structValidator.Struct(i)
}

// GenericEchoValidator plugs ValidateStruct into echo's Context.Validate.
type GenericEchoValidator struct{}

func (gv *GenericEchoValidator) Validate(i interface{}) error {
	if err := ValidateStruct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("received invalid request body: %v", err))
	}
	return nil
}
