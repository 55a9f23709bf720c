// Package confrec manages declarative, typed configuration records.
//
// A record is any struct that embeds Base. Its exported fields carry the
// configuration schema: declared types, default values, help text, and
// optional constraints, all expressed through struct tags. On top of a
// recursive field walk the package provides validation, conversion to and
// from a JSON-compatible value tree, recursive merging, and generation of a
// command-line flag surface that mirrors the record's structure, including
// nested records and lists of records addressed by dotted/indexed paths
// such as "trainer.layers.0.width".
//
// Quick start:
//
//	type ServerConfig struct {
//	    confrec.Base
//	    Host string `conf:"host" default:"localhost" help:"bind address"`
//	    Port int    `conf:"port" default:"8080" min:"1" max:"65535"`
//	}
//
//	cfg := &ServerConfig{}
//	err := confrec.NewLoader().
//	    WithDefaults().
//	    WithFile("config.json").
//	    WithEnvPrefix("MYAPP_").
//	    WithArgs(os.Args[1:]).
//	    Load(cfg)
//
// Load precedence (highest to lowest): command-line flags, environment
// variables, configuration file, tag defaults.
//
// All operations are synchronous and single-threaded; a record is meant to
// be owned by one goroutine during a program's startup configuration phase.
// Concurrent mutation requires caller-supplied synchronization.
package confrec
