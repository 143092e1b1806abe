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

package logging

import (
	"fmt"
	"strings"

	"github.com/coreos/go-systemd/v22/journal"
	"github.com/sirupsen/logrus"
)

// SendFunc matches journal.Send.
type SendFunc func(message string, priority journal.Priority, vars map[string]string) error

// JournalHook mirrors log entries to the systemd journal.
type JournalHook struct {
	// Identifier is sent as SYSLOG_IDENTIFIER.
	Identifier string
	send       SendFunc
}

var _ logrus.Hook = &JournalHook{}

// NewJournalHook returns a hook sending to journald, or nil when the
// journal socket is not available.
func NewJournalHook(identifier string) *JournalHook {
	if !journal.Enabled() {
		return nil
	}
	return &JournalHook{Identifier: identifier, send: journal.Send}
}

// newJournalHookWithSender is used by tests to capture what would be sent.
func newJournalHookWithSender(identifier string, send SendFunc) *JournalHook {
	return &JournalHook{Identifier: identifier, send: send}
}

func (h *JournalHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *JournalHook) Fire(entry *logrus.Entry) error {
	vars := make(map[string]string, len(entry.Data)+1)
	if h.Identifier != "" {
		vars["SYSLOG_IDENTIFIER"] = h.Identifier
	}
	for k, v := range entry.Data {
		vars[fieldName(k)] = fmt.Sprint(v)
	}
	return h.send(entry.Message, priority(entry.Level), vars)
}

// fieldName maps a logrus field key onto the journald [A-Z0-9_] alphabet.
func fieldName(k string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, strings.TrimLeft(k, "_"))
}

func priority(level logrus.Level) journal.Priority {
	switch level {
	case logrus.PanicLevel:
		return journal.PriEmerg
	case logrus.FatalLevel:
		return journal.PriCrit
	case logrus.ErrorLevel:
		return journal.PriErr
	case logrus.WarnLevel:
		return journal.PriWarning
	case logrus.InfoLevel:
		return journal.PriInfo
	default:
		return journal.PriDebug
	}
}
