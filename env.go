package confrec

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// EnvTransformFunc converts a leaf path to an environment variable name.
type EnvTransformFunc func(path string) string

// defaultEnvTransform maps "server.port" to "PREFIX_SERVER_PORT".
func defaultEnvTransform(prefix string) EnvTransformFunc {
	return func(path string) string {
		env := strings.ReplaceAll(path, ".", "_")
		env = strings.ToUpper(env)
		return prefix + env
	}
}

// ApplyEnv overrides the record's leaf fields from environment variables.
// Each leaf path is transformed to PREFIX_PATH_WITH_UNDERSCORES; variables
// that are not set leave their fields untouched. Raw-JSON leaves (primitive
// lists, mappings) take their value as JSON text.
func ApplyEnv(rec any, prefix string) error {
	return ApplyEnvTransform(rec, defaultEnvTransform(prefix))
}

// ApplyEnvTransform is ApplyEnv with a caller-supplied path transformer.
func ApplyEnvTransform(rec any, transform EnvTransformFunc) error {
	specs, err := BuildSpecs(rec, "")
	if err != nil {
		return err
	}
	values := make(map[string]any)
	for _, s := range specs {
		raw, ok := os.LookupEnv(transform(s.Path))
		if !ok {
			continue
		}
		switch s.Kind {
		case FlagBool:
			b, err := strconv.ParseBool(raw)
			if err != nil {
				return fmt.Errorf("%w: env override for %s: %v", ErrTypeMismatch, s.Path, err)
			}
			values[s.Path] = b
		case FlagInt:
			i, err := strconv.ParseInt(raw, 0, 64)
			if err != nil {
				return fmt.Errorf("%w: env override for %s: %v", ErrTypeMismatch, s.Path, err)
			}
			values[s.Path] = i
		case FlagFloat:
			f, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return fmt.Errorf("%w: env override for %s: %v", ErrTypeMismatch, s.Path, err)
			}
			values[s.Path] = f
		default:
			// Strings pass through; JSON leaves are decoded by Apply.
			values[s.Path] = raw
		}
	}
	if len(values) == 0 {
		return nil
	}
	return Apply(rec, values, "")
}
