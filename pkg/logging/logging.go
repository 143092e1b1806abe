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

// Package logging builds the logrus loggers used by the dev server. Every
// line is tagged with the process id so output from several harness
// processes sharing a terminal can be told apart.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// PIDFormatter renders entries as "[<pid>] <message>". Fields, if any, are
// appended as sorted key=value pairs.
type PIDFormatter struct {
	// PID is the tag written in front of every line. Zero means os.Getpid().
	PID int
}

var _ logrus.Formatter = &PIDFormatter{}

func (f *PIDFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	pid := f.PID
	if pid == 0 {
		pid = os.Getpid()
	}

	b := entry.Buffer
	if b == nil {
		b = &bytes.Buffer{}
	}
	fmt.Fprintf(b, "[%d] %s", pid, entry.Message)

	if len(entry.Data) > 0 {
		keys := make([]string, 0, len(entry.Data))
		for k := range entry.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(b, " %s=%v", k, entry.Data[k])
		}
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

// New returns a logger writing PID-tagged lines to w at the given level.
func New(w io.Writer, level logrus.Level) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&PIDFormatter{})
	l.SetLevel(level)
	return l
}

// ParseLevel accepts the logrus level names ("debug", "info", ...). An
// empty string means info.
func ParseLevel(s string) (logrus.Level, error) {
	if s == "" {
		return logrus.InfoLevel, nil
	}
	lvl, err := logrus.ParseLevel(s)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid log level %q", s)
	}
	return lvl, nil
}
