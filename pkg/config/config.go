// Copyright 2026 CNI authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config assembles the dev server configuration from defaults, an
// optional JSON file and command line flags, in that order of precedence.
package config

import (
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"github.com/buger/jsonparser"
	"github.com/pkg/errors"

	"github.com/containernetworking/devserver/pkg/devserver"
)

type Config struct {
	Host string
	Port int
	// PIDFile, if set, is written on start and removed on exit.
	PIDFile string
	// NetNS is a network namespace path to bind in.
	NetNS string
	// OnClose is a command line run after the listener closes.
	OnClose  string
	LogLevel string
	// Journal mirrors log lines to the systemd journal.
	Journal bool
}

func Default() *Config {
	return &Config{
		Host:     devserver.DefaultHost,
		Port:     devserver.DefaultPort,
		LogLevel: "info",
	}
}

// Addr is Host:Port.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c *Config) Validate() error {
	if c.Host == "" {
		return errors.New("host must not be empty")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.PIDFile != "" && !filepath.IsAbs(c.PIDFile) {
		return fmt.Errorf("pidfile %q: path not absolute", c.PIDFile)
	}
	return nil
}

// Load reads a JSON config file on top of the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config %q", path)
	}
	c := Default()
	if err := Decode(data, c); err != nil {
		return nil, errors.Wrapf(err, "failed to parse config %q", path)
	}
	return c, nil
}

// Decode overlays the keys present in data onto c. Unknown keys are an
// error so typos do not go unnoticed.
func Decode(data []byte, c *Config) error {
	if _, typ, _, err := jsonparser.Get(data); err != nil {
		return err
	} else if typ != jsonparser.Object {
		return fmt.Errorf("expected a JSON object, got %s", typ)
	}

	return jsonparser.ObjectEach(data, func(key, value []byte, typ jsonparser.ValueType, _ int) error {
		k := string(key)
		var err error
		switch k {
		case "host":
			c.Host, err = str(k, value, typ)
		case "pidfile":
			c.PIDFile, err = str(k, value, typ)
		case "netns":
			c.NetNS, err = str(k, value, typ)
		case "onClose":
			c.OnClose, err = str(k, value, typ)
		case "logLevel":
			c.LogLevel, err = str(k, value, typ)
		case "port":
			if typ != jsonparser.Number {
				return fmt.Errorf("%q must be a number, got %s", k, typ)
			}
			var p int64
			p, err = jsonparser.ParseInt(value)
			c.Port = int(p)
		case "journal":
			if typ != jsonparser.Boolean {
				return fmt.Errorf("%q must be a boolean, got %s", k, typ)
			}
			c.Journal, err = jsonparser.ParseBoolean(value)
		default:
			return fmt.Errorf("unknown key %q", k)
		}
		return errors.Wrapf(err, "invalid %q", k)
	})
}

func str(key string, value []byte, typ jsonparser.ValueType) (string, error) {
	if typ != jsonparser.String {
		return "", fmt.Errorf("%q must be a string, got %s", key, typ)
	}
	return jsonparser.ParseString(value)
}

// Parse builds the configuration from command line arguments. Flags that
// are set explicitly override values from -config, which override the
// defaults.
func Parse(name string, args []string, output io.Writer) (*Config, error) {
	def := Default()
	flags := *def
	var path string

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&path, "config", "", "optional JSON config file")
	fs.StringVar(&flags.Host, "host", def.Host, "address to listen on")
	fs.IntVar(&flags.Port, "port", def.Port, "TCP port to listen on")
	fs.StringVar(&flags.PIDFile, "pidfile", "", "optional absolute path to write the server PID to")
	fs.StringVar(&flags.NetNS, "netns", "", "optional network namespace path to listen in")
	fs.StringVar(&flags.OnClose, "on-close", "", "optional command to run after the listener closes")
	fs.StringVar(&flags.LogLevel, "log-level", def.LogLevel, "log level (debug, info, warn, error)")
	fs.BoolVar(&flags.Journal, "journal", false, "also send log lines to the systemd journal")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	c := def
	if path != "" {
		var err error
		if c, err = Load(path); err != nil {
			return nil, err
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "host":
			c.Host = flags.Host
		case "port":
			c.Port = flags.Port
		case "pidfile":
			c.PIDFile = flags.PIDFile
		case "netns":
			c.NetNS = flags.NetNS
		case "on-close":
			c.OnClose = flags.OnClose
		case "log-level":
			c.LogLevel = flags.LogLevel
		case "journal":
			c.Journal = flags.Journal
		}
	})

	if err := c.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return c, nil
}
