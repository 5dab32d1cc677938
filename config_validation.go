package doodle

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/golobby/cast"
)

const (
	tagDefault  = "default"
	tagRequired = "required"
)

// ConfigValidator is implemented by configuration structs that need checks
// beyond required fields. LoadConfig calls Validate after defaults have been
// applied.
type ConfigValidator interface {
	Validate() error
}

// ProcessConfigDefaults sets every zero-valued field tagged `default:"..."`.
// Nested structs and non-nil struct pointers are walked. Scalars are parsed
// from the tag text, durations with time.ParseDuration and slices or maps of
// strings from JSON.
//
//	type RunnerSection struct {
//	    TargetFPS float64 `default:"60"`
//	    Policy    string  `default:"fail-fast"`
//	}
func ProcessConfigDefaults(cfg any) error {
	v, err := configStruct(cfg)
	if err != nil {
		return err
	}
	return processStructDefaults(v)
}

func processStructDefaults(v reflect.Value) error {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)
		if !field.CanSet() {
			continue
		}

		if field.Kind() == reflect.Struct {
			if err := processStructDefaults(field); err != nil {
				return err
			}
			continue
		}
		if field.Kind() == reflect.Pointer && field.Type().Elem().Kind() == reflect.Struct {
			if !field.IsNil() {
				if err := processStructDefaults(field.Elem()); err != nil {
					return err
				}
			}
			continue
		}

		defaultVal, hasDefault := fieldType.Tag.Lookup(tagDefault)
		if !hasDefault || !isZeroValue(field) {
			continue
		}
		if err := setDefaultValue(field, defaultVal); err != nil {
			return fmt.Errorf("failed to set default value for %s: %w", fieldType.Name, err)
		}
	}
	return nil
}

// ValidateConfigRequired checks that every field tagged `required:"true"`
// holds a non-zero value. The error lists all missing fields by path.
func ValidateConfigRequired(cfg any) error {
	v, err := configStruct(cfg)
	if err != nil {
		return err
	}

	var missing []string
	validateRequiredFields(v, "", &missing)
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrConfigRequiredFieldMissing, strings.Join(missing, ", "))
	}
	return nil
}

func validateRequiredFields(v reflect.Value, prefix string, missing *[]string) {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)
		if !field.CanSet() {
			continue
		}

		fieldName := fieldType.Name
		if prefix != "" {
			fieldName = prefix + "." + fieldName
		}

		switch {
		case field.Kind() == reflect.Struct:
			validateRequiredFields(field, fieldName, missing)
		case field.Kind() == reflect.Pointer && field.Type().Elem().Kind() == reflect.Struct:
			if !field.IsNil() {
				validateRequiredFields(field.Elem(), fieldName, missing)
			} else if isFieldRequired(&fieldType) {
				*missing = append(*missing, fieldName)
			}
		case isFieldRequired(&fieldType) && isZeroValue(field):
			*missing = append(*missing, fieldName)
		}
	}
}

// ValidateConfig applies defaults, checks required fields and finally calls
// Validate when cfg implements ConfigValidator.
func ValidateConfig(cfg any) error {
	if err := ProcessConfigDefaults(cfg); err != nil {
		return err
	}
	return validateFed(cfg)
}

// validateFed checks required fields and ConfigValidator without touching
// values.
func validateFed(cfg any) error {
	if err := ValidateConfigRequired(cfg); err != nil {
		return err
	}
	if validator, ok := cfg.(ConfigValidator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
	}
	return nil
}

func configStruct(cfg any) (reflect.Value, error) {
	if cfg == nil {
		return reflect.Value{}, ErrConfigNil
	}
	v := reflect.ValueOf(cfg)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return reflect.Value{}, ErrConfigNotPointer
	}
	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return reflect.Value{}, ErrConfigNotStruct
	}
	return v, nil
}

func isFieldRequired(field *reflect.StructField) bool {
	required, exists := field.Tag.Lookup(tagRequired)
	return exists && required == "true"
}

// isZeroValue treats empty collections as zero, unlike reflect.Value.IsZero.
func isZeroValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Interface, reflect.Pointer:
		return v.IsNil()
	case reflect.Invalid:
		return true
	case reflect.Chan, reflect.Func, reflect.Struct, reflect.UnsafePointer:
		return false
	default:
		return v.IsZero()
	}
}

func setDefaultValue(field reflect.Value, defaultVal string) error {
	if field.Type() == reflect.TypeOf(time.Duration(0)) {
		d, err := time.ParseDuration(defaultVal)
		if err != nil {
			return fmt.Errorf("failed to parse duration value: %w", err)
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return setDefaultScalar(field, defaultVal)
	case reflect.Slice, reflect.Map:
		return setDefaultJSON(field, defaultVal)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedTypeForDefault, field.Kind())
	}
}

func setDefaultScalar(field reflect.Value, defaultVal string) error {
	converted, err := cast.FromType(defaultVal, field.Type())
	if err != nil {
		return fmt.Errorf("failed to parse %s value %q: %w", field.Kind(), defaultVal, err)
	}
	value := reflect.ValueOf(converted)
	if !value.Type().ConvertibleTo(field.Type()) {
		return fmt.Errorf("%w: cannot set %s value to %s", ErrIncompatibleFieldKind, value.Kind(), field.Type())
	}
	field.Set(value.Convert(field.Type()))
	return nil
}

func setDefaultJSON(field reflect.Value, defaultVal string) error {
	ptr := reflect.New(field.Type())
	if err := json.Unmarshal([]byte(defaultVal), ptr.Interface()); err != nil {
		return fmt.Errorf("failed to unmarshal JSON %s: %w", field.Kind(), err)
	}
	field.Set(ptr.Elem())
	return nil
}
