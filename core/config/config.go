// Package config holds the host configuration.
package config

import (
	"crypto/subtle"
	_ "embed"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"sigs.k8s.io/yaml"
)

//go:embed default/config.yaml
var defaultConfigData []byte

const (
	// ConfigurationName is the name of the configuration file in a
	// configuration directory.
	ConfigurationName = "config.yaml"
)

// Configuration is the root of config.yaml.
type Configuration struct {
	// dir is the directory the configuration was loaded from, relative
	// paths are resolved against it.
	dir string

	Shell      Shell      `json:"shell"`
	Filesystem Filesystem `json:"filesystem"`
	Log        Log        `json:"log"`
	SSH        SSH        `json:"ssh"`
}

// Shell configures the interpreter.
type Shell struct {
	User     string `json:"user" validate:"required"`
	Hostname string `json:"hostname" validate:"required,hostname_rfc1123"`
	Home     string `json:"home" validate:"required,startswith=/"`
	Path     string `json:"path"`
	Prompt   string `json:"prompt"`

	ScriptExt    string `json:"script_ext" validate:"omitempty,startswith=."`
	HistorySize  int    `json:"history_size" validate:"gte=0"`
	Cancellation string `json:"cancellation" validate:"omitempty,oneof=cooperative forced"`

	Aliases map[string]string `json:"aliases"`
	Env     map[string]string `json:"env"`
}

// Filesystem selects the filesystem sessions share.
type Filesystem struct {
	Type string `json:"type" validate:"oneof=memory os"`
	Root string `json:"root" validate:"required_if=Type os"`
	// Mounts attach host directories into the tree read-only.
	Mounts []Mount `json:"mounts" validate:"dive"`
}

// Mount attaches the host directory Root at Path.
type Mount struct {
	Path string `json:"path" validate:"required,startswith=/,ne=/"`
	Root string `json:"root" validate:"required"`
}

// Log configures the application log.
type Log struct {
	Level  string `json:"level" validate:"oneof=debug info warn error"`
	Format string `json:"format" validate:"oneof=console json"`
	Path   string `json:"path"`
}

// SSH configures the SSH host.
type SSH struct {
	Port        int      `json:"port" validate:"gte=0,lte=65535"`
	HostKeyPath string   `json:"host_key_path"`
	Banner      string   `json:"banner"`
	Passwords   []string `json:"passwords" validate:"unique"`
	OutputRate  int64    `json:"output_rate" validate:"gte=0"`

	// RecordDir holds asciicast recordings of every session if set.
	RecordDir string `json:"record_dir"`
}

// Validate the configuration for basic semantic errors.
func (c *Configuration) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		return name
	})

	return validate.Struct(c)
}

// ResolvePath resolves a path from the configuration against the directory
// it was loaded from.
func (c *Configuration) ResolvePath(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.dir, path)
}

// HasPassword reports whether password is accepted for logins.
func (c *Configuration) HasPassword(password string) bool {
	for _, p := range c.SSH.Passwords {
		if subtle.ConstantTimeCompare([]byte(p), []byte(password)) == 1 {
			return true
		}
	}
	return false
}

// Default returns the built-in configuration.
func Default() *Configuration {
	var out Configuration
	if err := yaml.UnmarshalStrict(defaultConfigData, &out); err != nil {
		panic(err)
	}
	out.dir = "."
	return &out
}
