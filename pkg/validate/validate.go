// Package validate checks request payloads against their `validate` struct
// tags using go-playground/validator and reports failures keyed by JSON
// field path, e.g. "items[1].quantity".
//
//	type ItemInput struct {
//	    Price    *float64 `json:"price"    validate:"required,gte=0"`
//	    Quantity *float64 `json:"quantity" validate:"required,integer,gte=1"`
//	}
//	type OrderInput struct {
//	    Items []ItemInput `json:"items" validate:"required,min=1,dive"`
//	}
//
// Besides the validator's own tags, "integer" accepts whole numbers held in
// float fields (JSON numbers decode to float64).
package validate

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var engine = newEngine()

func newEngine() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		switch name {
		case "-":
			return ""
		case "":
			return strings.ToLower(f.Name[:1]) + f.Name[1:]
		}
		return name
	})
	if err := v.RegisterValidation("integer", isInteger); err != nil {
		panic(err)
	}
	return v
}

func isInteger(fl validator.FieldLevel) bool {
	f := fl.Field()
	switch f.Kind() {
	case reflect.Float32, reflect.Float64:
		return f.Float() == math.Trunc(f.Float())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	case reflect.String:
		_, err := strconv.ParseInt(f.String(), 10, 64)
		return err == nil
	}
	return false
}

// Errors maps a field path to the message of the first rule it failed.
type Errors map[string]string

// Messages returns every message ordered by field path, with list indexes
// compared numerically.
func (e Errors) Messages() []string {
	paths := make([]string, 0, len(e))
	for p := range e {
		paths = append(paths, p)
	}
	sort.Slice(paths, func(i, j int) bool { return pathLess(paths[i], paths[j]) })

	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = e[p]
	}
	return out
}

// Struct validates v and every struct reachable through its fields. A nil
// pointer or a non-struct value has nothing to check.
func Struct(v interface{}) Errors {
	errs := Errors{}

	err := engine.Struct(v)
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return errs
	}
	for _, fe := range fieldErrs {
		path := fieldPath(fe)
		if _, seen := errs[path]; !seen {
			errs[path] = message(path, fe)
		}
	}
	return errs
}

// HasErrors returns true when errs is non-empty.
func HasErrors(errs Errors) bool { return len(errs) > 0 }

// fieldPath drops the root struct name from the validator's namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func message(path string, fe validator.FieldError) string {
	param := fe.Param()
	switch fe.Tag() {
	case "required":
		return path + " is required"
	case "email":
		return path + " must be a valid email address"
	case "uuid", "uuid4":
		return path + " must be a valid UUID"
	case "integer":
		return path + " must be an integer"
	case "min":
		if isList(fe.Kind()) {
			return fmt.Sprintf("%s must contain at least %s items", path, param)
		}
		return fmt.Sprintf("%s must be at least %s%s", path, param, unit(fe.Kind()))
	case "max":
		if isList(fe.Kind()) {
			return fmt.Sprintf("%s must not contain more than %s items", path, param)
		}
		return fmt.Sprintf("%s must not exceed %s%s", path, param, unit(fe.Kind()))
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", path, param)
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", path, param)
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", path, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", path, strings.Join(strings.Fields(param), ", "))
	}
	return fmt.Sprintf("%s failed the %q rule", path, fe.Tag())
}

func unit(k reflect.Kind) string {
	if k == reflect.String {
		return " characters"
	}
	return ""
}

func isList(k reflect.Kind) bool {
	return k == reflect.Slice || k == reflect.Array || k == reflect.Map
}

// pathLess orders "items[2].name" before "items[10].name".
func pathLess(a, b string) bool {
	for a != "" && b != "" {
		if isDigit(a[0]) && isDigit(b[0]) {
			na, ra := leadingNumber(a)
			nb, rb := leadingNumber(b)
			if na != nb {
				return na < nb
			}
			a, b = ra, rb
			continue
		}
		if a[0] != b[0] {
			return a[0] < b[0]
		}
		a, b = a[1:], b[1:]
	}
	return len(a) < len(b)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func leadingNumber(s string) (int, string) {
	i := 0
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	n, err := strconv.Atoi(s[:i])
	if err != nil {
		n = math.MaxInt
	}
	return n, s[i:]
}

var dateLayouts = []string{
	time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02",
}

// ParseDate accepts RFC 3339 timestamps, zone-less timestamps and bare
// YYYY-MM-DD dates. Values without a zone are read as UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as date", s)
}
