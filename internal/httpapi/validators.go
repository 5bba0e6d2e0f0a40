package httpapi

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)
	toolNameRe         = regexp.MustCompile(`^` + toolNamePattern + `$`)
)

func init() {
	_ = validate.RegisterValidation("identifier", func(fl validator.FieldLevel) bool {
		return identifierPattern.MatchString(fl.Field().String())
	})
	_ = validate.RegisterValidation("toolname", func(fl validator.FieldLevel) bool {
		return toolNameRe.MatchString(fl.Field().String())
	})
}
