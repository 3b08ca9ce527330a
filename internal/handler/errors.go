package handler

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/Bidon15/popsigner/gas-estimator/internal/estimator"
	"github.com/Bidon15/popsigner/gas-estimator/internal/oracle"
	apierrors "github.com/Bidon15/popsigner/gas-estimator/internal/pkg/errors"
	"github.com/Bidon15/popsigner/gas-estimator/internal/report"
)

var (
	// ErrMissingDependency is returned by NewGasHandler when a required service is nil.
	ErrMissingDependency = errors.New("handler: missing dependency")

	// errUpstream marks failures of a gas price provider.
	errUpstream = errors.New("upstream")
)

// priceError classifies an error returned by a PriceService.
func priceError(err error) error {
	if errors.Is(err, oracle.ErrUnsupportedNetwork) {
		return err
	}
	return fmt.Errorf("%w: %w", errUpstream, err)
}

// toAPIError maps domain errors onto API errors: malformed input is a 400,
// a failing price provider a 502 and anything else a 500.
func toAPIError(err error) *apierrors.APIError {
	var (
		apiErr      *apierrors.APIError
		validErr    *estimator.ValidationError
		mismatchErr *estimator.NetworkMismatchError
	)
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.As(err, &validErr):
		return apierrors.NewValidationError(validErr.Field, validErr.Message)
	case errors.As(err, &mismatchErr):
		return apierrors.ErrBadRequest.WithMessage(mismatchErr.Error())
	case errors.Is(err, oracle.ErrUnsupportedNetwork):
		return apierrors.NewValidationError("network", err.Error())
	case errors.Is(err, errUpstream), errors.Is(err, report.ErrPriceUnavailable):
		return apierrors.ErrUpstream.WithMessage(err.Error())
	}
	return apierrors.ErrInternal
}

// validationError converts validator failures into a field keyed API error.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apierrors.ErrBadRequest.WithMessage(err.Error())
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = validationMessage(fe)
	}
	return apierrors.NewValidationErrors(fields)
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "startswith":
		return "must start with " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "min":
		return "must contain at least " + fe.Param() + " item(s)"
	case "max":
		return "must be at most " + fe.Param()
	case "number":
		return "must be a number"
	}
	return "failed " + fe.Tag() + " validation"
}
