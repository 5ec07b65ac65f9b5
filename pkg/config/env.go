package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
)

// ApplyEnvOverrides sets struct fields from environment variables named
// PREFIX_SECTION_FIELD, where each segment is the field's yaml tag in upper
// case (LIGHTPOOL_POOL_WORKERS, LIGHTPOOL_METRICS_ENABLED).
func ApplyEnvOverrides(prefix string, target interface{}) error {
	val := reflect.ValueOf(target)
	if val.Kind() != reflect.Ptr || val.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("target must be a pointer to a struct")
	}
	return applyEnv(prefix, val.Elem())
}

func applyEnv(prefix string, val reflect.Value) error {
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		if !field.CanSet() {
			continue
		}

		key := prefix + "_" + envSegment(typ.Field(i))

		if field.Kind() == reflect.Struct {
			if err := applyEnv(key, field); err != nil {
				return err
			}
			continue
		}

		raw, ok := os.LookupEnv(key)
		if !ok {
			continue
		}
		if err := setFromString(field, raw); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}

func envSegment(f reflect.StructField) string {
	name := f.Name
	if tag, ok := f.Tag.Lookup("yaml"); ok {
		if n := strings.Split(tag, ",")[0]; n != "" && n != "-" {
			name = n
		}
	}
	return strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}

func setFromString(field reflect.Value, raw string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer value %q", raw)
		}
		field.SetInt(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("invalid boolean value %q", raw)
		}
		field.SetBool(b)
	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}
	return nil
}
