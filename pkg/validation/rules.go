package validation

import (
	"regexp"
	"slices"

	"github.com/go-playground/validator/v10"

	"github.com/geniusappsio/tramita/internal/entities"
)

var (
	protocolPrefixRe = regexp.MustCompile(`^[A-Z0-9]{1,10}$`)
	slugRe           = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
)

// registerRules registers the custom tags used in DTO struct tags.
func registerRules(v *validator.Validate) error {
	if err := v.RegisterValidation("protocol_prefix", isProtocolPrefix); err != nil {
		return err
	}
	if err := v.RegisterValidation("slug", isSlug); err != nil {
		return err
	}
	if err := v.RegisterValidation("field_type", isFieldType); err != nil {
		return err
	}
	return nil
}

// IsProtocolPrefix accepts the prefix part of "MEM-2026/000001".
func IsProtocolPrefix(prefix string) bool {
	return protocolPrefixRe.MatchString(prefix)
}

func isProtocolPrefix(fl validator.FieldLevel) bool {
	return IsProtocolPrefix(fl.Field().String())
}

func isSlug(fl validator.FieldLevel) bool {
	return slugRe.MatchString(fl.Field().String())
}

func isFieldType(fl validator.FieldLevel) bool {
	return slices.Contains(entities.FieldTypes, fl.Field().String())
}
