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

// devserver is a placeholder TCP listener for local development. It binds
// 127.0.0.1:1337 by default, holds incoming connections open and logs its
// lifecycle to stdout, each line tagged with the process id.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/sirupsen/logrus"

	"github.com/containernetworking/devserver/pkg/config"
	"github.com/containernetworking/devserver/pkg/devserver"
	"github.com/containernetworking/devserver/pkg/exec"
	"github.com/containernetworking/devserver/pkg/logging"
	"github.com/containernetworking/devserver/pkg/pidfile"
)

const onCloseTimeout = 2 * time.Minute

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Parse("devserver", args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "devserver: %v\n", err)
		return 2
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(stderr, "devserver: %v\n", err)
		return 2
	}
	log := logging.New(stdout, level)
	if cfg.Journal {
		if hook := logging.NewJournalHook("devserver"); hook != nil {
			log.AddHook(hook)
		} else {
			log.Warn("journal requested but journald is not available")
		}
	}

	var onClose *exec.Runner
	if cfg.OnClose != "" {
		if onClose, err = exec.NewRunner(exec.New(), cfg.OnClose, stdout, stderr); err != nil {
			fmt.Fprintf(stderr, "devserver: on-close: %v\n", err)
			return 2
		}
	}

	if cfg.PIDFile != "" {
		pf, err := pidfile.Write(cfg.PIDFile)
		if err != nil {
			fmt.Fprintf(stderr, "devserver: %v\n", err)
			return 1
		}
		defer func() {
			if err := pf.Remove(); err != nil {
				fmt.Fprintf(stderr, "devserver: %v\n", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := devserver.New(devserver.Options{
		Host:  cfg.Host,
		Port:  cfg.Port,
		NetNS: cfg.NetNS,
	}, log, devserver.Hooks{
		Listening: func(addr net.Addr) {
			notify(log, daemon.SdNotifyReady)
			log.WithField("addr", addr).Debug("accepting connections")
		},
		Close: func() {
			notify(log, daemon.SdNotifyStopping)
			if onClose == nil {
				return
			}
			cctx, cancel := context.WithTimeout(context.Background(), onCloseTimeout)
			defer cancel()
			log.WithField("command", onClose.String()).Debug("running on-close command")
			if err := onClose.Run(cctx); err != nil {
				log.WithError(err).Warn("on-close command failed")
			}
		},
	})

	log.WithFields(logrus.Fields{"addr": cfg.Addr(), "netns": cfg.NetNS}).Debug("binding")
	if err := srv.ListenAndServe(ctx); err != nil && !errors.Is(err, devserver.ErrServerClosed) {
		// the error line is the only report; the exit status stays 0
		log.WithError(err).Debug("listener stopped")
	}
	return 0
}

func notify(log logrus.FieldLogger, state string) {
	if _, err := daemon.SdNotify(false, state); err != nil {
		log.WithError(err).Debug("sd_notify failed")
	}
}
