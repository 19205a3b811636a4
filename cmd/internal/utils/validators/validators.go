package validators

import (
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var hasSpaces = regexp.MustCompile(`\s+`)

// New returns a validator with the custom rules registered and field names
// reported by their json (or query) names.
func New() *validator.Validate {
	validate := validator.New()
	validate.RegisterTagNameFunc(fieldName)
	_ = validate.RegisterValidation("nospaces", NoWhiteSpaces)
	_ = validate.RegisterValidation("maxbytes", MaxBytes)
	return validate
}

// NoWhiteSpaces returns false if the string contains any whitespace (rejecting the user input).
func NoWhiteSpaces(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.String {
		return false
	}

	str := field.String()
	return !hasSpaces.MatchString(str)
}

// MaxBytes limits the encoded length of a string, unlike max which counts runes.
func MaxBytes(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.String {
		return false
	}

	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(field.String()) <= limit
}

func fieldName(f reflect.StructField) string {
	for _, key := range []string{"json", "query", "form"} {
		name, _, _ := strings.Cut(f.Tag.Get(key), ",")
		if name != "" && name != "-" {
			return name
		}
	}
	return f.Name
}
