package edupass

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

// ErrNotPointer indicates that SetConfigFromEnvVars received something
// other than a pointer to a struct.
var ErrNotPointer = errors.New("configuration target must be a pointer to a struct")

// GetenvOrDefault returns the value of the environment variable key, or
// defaultValue when the variable is unset or contains only whitespace.
func GetenvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return defaultValue
	}

	return value
}

// GetenvBoolOrDefault returns the boolean value of the environment
// variable key, or defaultValue when the variable is unset or does not
// parse as a boolean.
func GetenvBoolOrDefault(key string, defaultValue bool) bool {
	parsed, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return defaultValue
	}

	return parsed
}

// GetenvIntOrDefault returns the integer value of the environment
// variable key, or defaultValue when the variable is unset or does not
// parse as an integer.
func GetenvIntOrDefault(key string, defaultValue int64) int64 {
	parsed, err := strconv.ParseInt(strings.TrimSpace(os.Getenv(key)), 10, 64)
	if err != nil {
		return defaultValue
	}

	return parsed
}

// SetConfigFromEnvVars fills the exported fields of the struct pointed to
// by target from environment variables named by their `env` tags. Fields
// without an env tag are left untouched; unset variables keep the field's
// current value. Supported field kinds are string, bool, and the signed
// integer kinds.
func SetConfigFromEnvVars(target any) error {
	value := reflect.ValueOf(target)
	if value.Kind() != reflect.Ptr || value.IsNil() || value.Elem().Kind() != reflect.Struct {
		return ErrNotPointer
	}

	elem := value.Elem()
	typ := elem.Type()

	for i := 0; i < elem.NumField(); i++ {
		field := elem.Field(i)

		tag := typ.Field(i).Tag.Get("env")
		if tag == "" || !field.CanSet() {
			continue
		}

		switch field.Kind() {
		case reflect.String:
			field.SetString(GetenvOrDefault(tag, field.String()))
		case reflect.Bool:
			field.SetBool(GetenvBoolOrDefault(tag, field.Bool()))
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			field.SetInt(GetenvIntOrDefault(tag, field.Int()))
		}
	}

	return nil
}

// LocalEnvConfig records that local environment bootstrap has run.
type LocalEnvConfig struct {
	Initialized bool
}

var (
	localEnvConfig     *LocalEnvConfig
	localEnvConfigOnce sync.Once
)

// InitLocalEnvConfig loads a .env file when one is present and prints the
// running version and environment name. It is safe to call from multiple
// places; the bootstrap runs once per process.
func InitLocalEnvConfig() *LocalEnvConfig {
	localEnvConfigOnce.Do(func() {
		// Missing .env is expected outside local development.
		_ = godotenv.Load()

		localEnvConfig = &LocalEnvConfig{Initialized: true}

		fmt.Printf("VERSION: %s\n\nENVIRONMENT NAME: %s\n\n",
			GetenvOrDefault("VERSION", "NO-VERSION"),
			GetenvOrDefault("ENV_NAME", "local"),
		)
	})

	return localEnvConfig
}
