package httputil

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/valyala/fasthttp"

	pkgerrors "github.com/AhmadKaify/Sanasend/pkg/errors"
)

var validate = validator.New()

// BindJSON decodes the request body into dst and runs struct validation
func BindJSON(ctx *fasthttp.RequestCtx, dst interface{}) error {
	if len(ctx.PostBody()) == 0 {
		return pkgerrors.NewValidationError("request body is required")
	}

	if err := json.Unmarshal(ctx.PostBody(), dst); err != nil {
		return pkgerrors.NewValidationError("invalid request body")
	}

	return Validate(dst)
}

// Validate runs struct validation and flattens failures into a ValidationError
func Validate(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return pkgerrors.NewValidationError(err.Error())
	}

	fields := make([]string, 0, len(validationErrs))
	for _, fe := range validationErrs {
		fields = append(fields, fmt.Sprintf("%s failed on %s", strings.ToLower(fe.Field()), fe.Tag()))
	}

	return pkgerrors.NewValidationErrorf("validation failed: %s", strings.Join(fields, "; "))
}
