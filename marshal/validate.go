package marshal

import (
	"errors"
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/reglet-dev/hostcall/domain/entities"
	domainerrors "github.com/reglet-dev/hostcall/domain/errors"
)

var operationNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)

// validate is a package-level singleton for better performance.
// Creating a new validator on each call is expensive; reusing is recommended.
var validate = newSignatureValidator()

func newSignatureValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("operation_name", func(fl validator.FieldLevel) bool {
		return operationNamePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("param_kind", func(fl validator.FieldLevel) bool {
		return entities.ParamKind(fl.Field().Int()).Valid()
	})
	return v
}

// ValidateSignature checks a signature definition before it is registered.
func ValidateSignature(sig entities.Signature) error {
	if err := validate.Struct(sig); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return &domainerrors.ConfigError{Field: verrs[0].Namespace(), Err: err}
		}
		return &domainerrors.ConfigError{Err: err}
	}
	return nil
}

// CheckArgs validates args against sig and returns the slice the native
// operation receives: exactly sig.Required() entries, each of its declared
// kind. Trailing arguments are dropped unless sig is Strict.
func CheckArgs(sig entities.Signature, args []entities.Value) (Args, error) {
	required := sig.Required()
	if len(args) < required || (sig.Strict && len(args) > required) {
		return nil, &domainerrors.ArityMismatchError{
			Operation: sig.Name,
			Expected:  required,
			Actual:    len(args),
		}
	}

	for i, kind := range sig.Params {
		if !kind.Accepts(args[i]) {
			return nil, &domainerrors.TypeMismatchError{
				Operation: sig.Name,
				Index:     i,
				Expected:  kind,
				Actual:    args[i].Kind(),
			}
		}
	}

	out := make(Args, required)
	copy(out, args[:required])
	return out, nil
}
