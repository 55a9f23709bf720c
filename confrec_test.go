package confrec

import (
	"fmt"
)

// Shared fixtures used across the test files.

type serverConfig struct {
	Base
	Host string `conf:"host" default:"localhost" help:"bind address"`
	Port int    `conf:"port" default:"8080" min:"1" max:"65535" help:"listen port"`
	TLS  bool   `conf:"tls" help:"serve TLS"`
}

type poolConfig struct {
	Base
	Size   int     `conf:"size" min:"1" help:"worker count"`
	Weight float64 `conf:"weight" help:"scheduling weight"`
}

type appConfig struct {
	Base
	Name    string         `conf:"name" help:"application name"`
	Debug   bool           `conf:"debug"`
	Server  serverConfig   `conf:"server"`
	Backup  *serverConfig  `conf:"backup" help:"optional standby server"`
	Pools   []poolConfig   `conf:"pools"`
	Tags    []string       `conf:"tags"`
	Limits  map[string]any `conf:"limits"`
	Retries *int           `conf:"retries"`
}

type jobConfig struct {
	Base
	ID   *string `conf:"id,mandatory" help:"job id"`
	Prio int     `conf:"prio" default:"5"`
}

type checkedConfig struct {
	Base
	ValA int `conf:"val_a"`

	checkCalls int
}

func (c *checkedConfig) CheckValues() error {
	c.checkCalls++
	if c.ValA < 0 {
		return fmt.Errorf("%w: val_a must not be negative", ErrConstraintViolation)
	}
	return nil
}

type cyclicConfig struct {
	Base
	Name string        `conf:"name"`
	Next *cyclicConfig `conf:"next"`
}

// Union fixture: a storage backend that is either disk or S3.

type storageConfig interface {
	storageVariant()
}

type diskConfig struct {
	Base
	Dir string `conf:"dir"`
}

func (*diskConfig) storageVariant() {}

type s3Config struct {
	Base
	Bucket string `conf:"bucket"`
	Region string `conf:"region"`
}

func (*s3Config) storageVariant() {}

type unionHost struct {
	Base
	Label   string        `conf:"label"`
	Storage storageConfig `conf:"storage"`
}

func init() {
	if err := RegisterUnion((*storageConfig)(nil), &diskConfig{}, &s3Config{}); err != nil {
		panic(err)
	}
}

func defaultApp() *appConfig {
	return &appConfig{
		Name:   "app",
		Server: serverConfig{Host: "localhost", Port: 8080},
		Pools: []poolConfig{
			{Size: 2, Weight: 1.0},
			{Size: 4, Weight: 0.5},
		},
		Tags:   []string{"dev", "local"},
		Limits: map[string]any{"rps": int64(100)},
	}
}
