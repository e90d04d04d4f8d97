package config

import (
	"encoding"
	"errors"
	"fmt"
	"net/http"
	"os"
	"reflect"

	"github.com/emberhall/fieldvault/fverrors"
	"github.com/emberhall/fieldvault/fvlog"
	"github.com/joho/godotenv"
)

// LoadStructFromEnv loads environment variables into a struct. Field names
// are converted to SCREAMING_SNAKE_CASE to form the lookup keys; nested
// structs contribute a key prefix, so Config.SharedCache.TTL reads
// SHARED_CACHE_TTL. A `default` tag supplies the value when the variable is
// absent, and a `required:"true"` tag makes absence an error. Values
// already set on the instance survive when neither the environment nor a
// default provides one.
//
// A .env file in the working directory is folded into the environment
// first, losing to variables that are already exported.
func LoadStructFromEnv[T any](instance *T, log fvlog.Logger) fverrors.Error {
	safetyCheck(&log)

	if err := godotenv.Load(DotEnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warnf("Error loading %s file: %v", DotEnvFile, err)
	}

	value := reflect.ValueOf(instance).Elem()
	if value.Kind() != reflect.Struct {
		return fverrors.FromErrorWithLog(
			http.StatusInternalServerError,
			ErrConfigMustBeStruct,
			fmt.Sprintf("config loader, got %T", instance),
			log,
		)
	}

	return loadStruct(value, "", log)
}

func loadStruct(structValue reflect.Value, keyPrefix string, log fvlog.Logger) fverrors.Error {
	structType := structValue.Type()

	for i := range structValue.NumField() {
		field := structType.Field(i)
		fieldVal := structValue.Field(i)

		if !fieldVal.CanSet() {
			continue
		}

		key := toScreamingSnakeCase(field.Name)
		if keyPrefix != "" {
			key = keyPrefix + "_" + key
		}

		if fieldVal.Kind() == reflect.Struct && !implementsTextUnmarshaler(fieldVal) {
			if err := loadStruct(fieldVal, key, log); err != nil {
				return err
			}

			continue
		}

		if err := loadField(fieldVal, field, key, log); err != nil {
			return err
		}
	}

	return nil
}

func loadField(
	fieldVal reflect.Value,
	field reflect.StructField,
	key string,
	log fvlog.Logger,
) fverrors.Error {
	raw, exists := os.LookupEnv(key)
	if !exists {
		if defaultVal, ok := field.Tag.Lookup(DefaultTagName); ok {
			raw = defaultVal
		} else if field.Tag.Get(RequiredTagName) == "true" {
			return fverrors.FromErrorWithLog(
				http.StatusInternalServerError,
				ErrValueIsRequired,
				"config loader: "+key,
				log,
			)
		} else {
			return nil
		}
	}

	if err := setFromString(fieldVal, raw); err != nil {
		return err.WrapWithLog("config loader: "+key, log)
	}

	return nil
}

func implementsTextUnmarshaler(v reflect.Value) bool {
	if !v.CanAddr() {
		return false
	}

	_, ok := v.Addr().Interface().(encoding.TextUnmarshaler)

	return ok
}
