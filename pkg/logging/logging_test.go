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
	"bytes"
	"fmt"
	"os"

	"github.com/coreos/go-systemd/v22/journal"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
)

var _ = Describe("Logging", func() {
	Describe("PIDFormatter", func() {
		It("prefixes the message with the process id", func() {
			buf := &bytes.Buffer{}
			l := New(buf, logrus.InfoLevel)
			l.Info("Dev server started on port: 1337")
			Expect(buf.String()).To(Equal(fmt.Sprintf("[%d] Dev server started on port: 1337\n", os.Getpid())))
		})

		It("uses an explicit pid when set", func() {
			buf := &bytes.Buffer{}
			l := New(buf, logrus.InfoLevel)
			l.SetFormatter(&PIDFormatter{PID: 42})
			l.Info("hello")
			Expect(buf.String()).To(Equal("[42] hello\n"))
		})

		It("appends fields sorted by key", func() {
			buf := &bytes.Buffer{}
			l := New(buf, logrus.DebugLevel)
			l.SetFormatter(&PIDFormatter{PID: 7})
			l.WithFields(logrus.Fields{"remote": "127.0.0.1:5000", "conn": "abc"}).Debug("connection released")
			Expect(buf.String()).To(Equal("[7] connection released conn=abc remote=127.0.0.1:5000\n"))
		})

		It("drops entries below the configured level", func() {
			buf := &bytes.Buffer{}
			l := New(buf, logrus.InfoLevel)
			l.Debug("hidden")
			Expect(buf.Len()).To(BeZero())
		})
	})

	Describe("ParseLevel", func() {
		It("defaults to info", func() {
			lvl, err := ParseLevel("")
			Expect(err).NotTo(HaveOccurred())
			Expect(lvl).To(Equal(logrus.InfoLevel))
		})

		It("parses known levels", func() {
			lvl, err := ParseLevel("debug")
			Expect(err).NotTo(HaveOccurred())
			Expect(lvl).To(Equal(logrus.DebugLevel))
		})

		It("rejects unknown levels", func() {
			_, err := ParseLevel("chatty")
			Expect(err).To(MatchError(ContainSubstring(`invalid log level "chatty"`)))
		})
	})

	Describe("JournalHook", func() {
		type sent struct {
			msg  string
			pri  journal.Priority
			vars map[string]string
		}

		var (
			captured []sent
			hook     *JournalHook
		)

		BeforeEach(func() {
			captured = nil
			hook = newJournalHookWithSender("devserver", func(msg string, pri journal.Priority, vars map[string]string) error {
				captured = append(captured, sent{msg, pri, vars})
				return nil
			})
		})

		It("forwards messages with their priority and identifier", func() {
			l := New(&bytes.Buffer{}, logrus.DebugLevel)
			l.AddHook(hook)

			l.Error("Error occured, reason: boom")
			l.WithField("conn", "abc").Debug("connection released")

			Expect(captured).To(HaveLen(2))
			Expect(captured[0].msg).To(Equal("Error occured, reason: boom"))
			Expect(captured[0].pri).To(Equal(journal.PriErr))
			Expect(captured[0].vars).To(HaveKeyWithValue("SYSLOG_IDENTIFIER", "devserver"))
			Expect(captured[1].pri).To(Equal(journal.PriDebug))
			Expect(captured[1].vars).To(HaveKeyWithValue("CONN", "abc"))
		})

		It("normalises field names for journald", func() {
			Expect(fieldName("remote-addr")).To(Equal("REMOTE_ADDR"))
			Expect(fieldName("_conn")).To(Equal("CONN"))
		})

		It("maps info and warn levels", func() {
			Expect(priority(logrus.InfoLevel)).To(Equal(journal.PriInfo))
			Expect(priority(logrus.WarnLevel)).To(Equal(journal.PriWarning))
			Expect(priority(logrus.TraceLevel)).To(Equal(journal.PriDebug))
		})
	})
})
