package feeders

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/golobby/cast"
)

// EnvFeeder sets fields tagged `env:"NAME"` from environment variables.
// With a Prefix, NAME is looked up as PREFIX_NAME. Nested structs are
// walked; unset or empty variables leave fields untouched.
type EnvFeeder struct {
	Prefix string

	lookup func(string) (string, bool)
}

// NewEnvFeeder creates an EnvFeeder reading variables with the given prefix.
func NewEnvFeeder(prefix string) EnvFeeder {
	return EnvFeeder{Prefix: prefix}
}

// Feed populates structure, which must be a pointer to a struct.
func (f EnvFeeder) Feed(structure any) error {
	rv := reflect.ValueOf(structure)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("%w: got %T", ErrEnvInvalidStructure, structure)
	}
	return f.processStructFields(rv.Elem())
}

func (f EnvFeeder) processStructFields(rv reflect.Value) error {
	for i := 0; i < rv.NumField(); i++ {
		field := rv.Field(i)
		fieldType := rv.Type().Field(i)
		if !fieldType.IsExported() {
			continue
		}

		switch {
		case field.Kind() == reflect.Struct:
			if err := f.processStructFields(field); err != nil {
				return fmt.Errorf("error in field '%s': %w", fieldType.Name, err)
			}
		case field.Kind() == reflect.Pointer && !field.IsNil() && field.Elem().Kind() == reflect.Struct:
			if err := f.processStructFields(field.Elem()); err != nil {
				return fmt.Errorf("error in field '%s': %w", fieldType.Name, err)
			}
		default:
			envTag, ok := fieldType.Tag.Lookup("env")
			if !ok || envTag == "" {
				continue
			}
			if err := f.setFieldFromEnv(field, envTag); err != nil {
				return fmt.Errorf("error in field '%s': %w", fieldType.Name, err)
			}
		}
	}
	return nil
}

func (f EnvFeeder) envName(tag string) string {
	name := strings.ToUpper(tag)
	if f.Prefix != "" {
		name = strings.ToUpper(f.Prefix) + "_" + name
	}
	return name
}

func (f EnvFeeder) setFieldFromEnv(field reflect.Value, envTag string) error {
	lookup := f.lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}

	envName := f.envName(envTag)
	value, ok := lookup(envName)
	if !ok || value == "" {
		return nil
	}
	if !field.CanSet() {
		return fmt.Errorf("%w: %s", ErrEnvFieldCannotBeSet, envName)
	}

	if field.Type() == reflect.TypeOf(time.Duration(0)) {
		d, err := time.ParseDuration(value)
		if err != nil {
			return wrapEnvConvertError(envName, "time.Duration", err)
		}
		field.SetInt(int64(d))
		return nil
	}

	converted, err := cast.FromType(value, field.Type())
	if err != nil {
		return wrapEnvConvertError(envName, field.Type().String(), err)
	}
	field.Set(reflect.ValueOf(converted).Convert(field.Type()))
	return nil
}
