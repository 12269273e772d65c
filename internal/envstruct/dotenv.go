package envstruct

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
)

// WithDotenv returns a lookup function that falls back to the variables in the dotenv file at path. Variables from
// lookupEnv take precedence. A missing file leaves lookupEnv unchanged.
func WithDotenv(path string, lookupEnv func(string) (string, bool)) (func(string) (string, bool), error) {
	vars, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return lookupEnv, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read dotenv %s: %w", path, err)
	}
	return func(key string) (string, bool) {
		if v, ok := lookupEnv(key); ok {
			return v, true
		}
		v, ok := vars[key]
		return v, ok
	}, nil
}
