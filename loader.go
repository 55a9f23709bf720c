package confrec

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// ValidatorFunc validates a fully loaded record.
type ValidatorFunc func(rec any) error

// Loader provides a fluent interface for layering configuration sources
// onto a record. Precedence, lowest to highest: tag defaults, file,
// environment variables, command-line arguments. Validators run last.
type Loader struct {
	defaults   bool
	file       string
	envPrefix  string
	env        bool
	args       []string
	namespace  string
	validators []ValidatorFunc
}

// NewLoader creates an empty loader; chain With* calls and finish with
// Load.
func NewLoader() *Loader {
	return &Loader{}
}

// WithDefaults applies default tags before any other source.
func (l *Loader) WithDefaults() *Loader {
	l.defaults = true
	return l
}

// WithFile layers a configuration file (.json or .toml, by extension). A
// missing file is not an error; the remaining sources still apply.
func (l *Loader) WithFile(path string) *Loader {
	l.file = path
	return l
}

// WithEnvPrefix layers environment variable overrides using the given
// prefix, e.g. "MYAPP_".
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	l.env = true
	return l
}

// WithArgs layers command-line flag overrides.
func (l *Loader) WithArgs(args []string) *Loader {
	l.args = args
	return l
}

// WithNamespace prefixes every generated flag name, so several records can
// share one command line without collisions.
func (l *Loader) WithNamespace(ns string) *Loader {
	l.namespace = ns
	return l
}

// WithValidator adds a validation function run after all sources are
// applied. Validators run in the order added.
func (l *Loader) WithValidator(fn ValidatorFunc) *Loader {
	if fn != nil {
		l.validators = append(l.validators, fn)
	}
	return l
}

// Load applies the configured sources to rec in precedence order.
func (l *Loader) Load(rec any) error {
	if l.defaults {
		if err := ApplyDefaults(rec); err != nil {
			return err
		}
	}
	if l.file != "" {
		if err := l.loadFile(rec); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	if l.env {
		if err := ApplyEnv(rec, l.envPrefix); err != nil {
			return err
		}
	}
	if len(l.args) > 0 {
		if err := ParseArgs(rec, l.args, l.namespace); err != nil {
			return err
		}
	}
	for _, validate := range l.validators {
		if err := validate(rec); err != nil {
			return fmt.Errorf("configuration validation failed: %w", err)
		}
	}
	return nil
}

func (l *Loader) loadFile(rec any) error {
	switch strings.ToLower(filepath.Ext(l.file)) {
	case ".toml", ".tml":
		return LoadTOML(rec, l.file)
	default:
		return LoadJSON(rec, l.file)
	}
}
