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

package exec

import (
	"context"
	"errors"
	"fmt"
	"io"
	osexec "os/exec"

	"github.com/mattn/go-shellwords"
	pkgerrors "github.com/pkg/errors"
)

type cmdWrapper osexec.Cmd

var _ Cmd = &cmdWrapper{}

type Cmd interface {
	Run() error
	SetStderr(io.Writer)
	SetStdout(io.Writer)
}

type Interface interface {
	CommandContext(ctx context.Context, cmd string, args ...string) Cmd
	LookPath(file string) (string, error)
}

type executor struct{}

func New() Interface {
	return &executor{}
}

func (executor *executor) CommandContext(ctx context.Context, cmd string, args ...string) Cmd {
	return (*cmdWrapper)(osexec.CommandContext(ctx, cmd, args...))
}

func (executor *executor) LookPath(file string) (string, error) {
	return osexec.LookPath(file)
}

func (cmd *cmdWrapper) Run() error {
	return (*osexec.Cmd)(cmd).Run()
}

func (cmd *cmdWrapper) SetStdout(out io.Writer) {
	cmd.Stdout = out
}

func (cmd *cmdWrapper) SetStderr(out io.Writer) {
	cmd.Stderr = out
}

// ParseCommandLine splits a shell-style command line into a program and its
// arguments. $VAR references are expanded from the environment; backticks
// are not evaluated.
func ParseCommandLine(line string) (string, []string, error) {
	p := shellwords.NewParser()
	p.ParseEnv = true
	p.ParseBacktick = false

	words, err := p.Parse(line)
	if err != nil {
		return "", nil, pkgerrors.Wrapf(err, "failed to parse command %q", line)
	}
	// Position is left at the first ; & | < or > outside quotes
	if p.Position >= 0 {
		return "", nil, fmt.Errorf("shell operators are not supported in %q, use sh -c", line)
	}
	if len(words) == 0 {
		return "", nil, errors.New("empty command")
	}
	return words[0], words[1:], nil
}

// Runner runs one parsed command line through an Interface.
type Runner struct {
	exec   Interface
	name   string
	args   []string
	stdout io.Writer
	stderr io.Writer
}

// NewRunner parses line and resolves its program with e.LookPath.
func NewRunner(e Interface, line string, stdout, stderr io.Writer) (*Runner, error) {
	name, args, err := ParseCommandLine(line)
	if err != nil {
		return nil, err
	}
	path, err := e.LookPath(name)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to find %q", name)
	}
	return &Runner{exec: e, name: path, args: args, stdout: stdout, stderr: stderr}, nil
}

// String is the resolved command line.
func (r *Runner) String() string {
	s := r.name
	for _, a := range r.args {
		s += " " + a
	}
	return s
}

func (r *Runner) Run(ctx context.Context) error {
	cmd := r.exec.CommandContext(ctx, r.name, r.args...)
	if r.stdout != nil {
		cmd.SetStdout(r.stdout)
	}
	if r.stderr != nil {
		cmd.SetStderr(r.stderr)
	}
	if err := cmd.Run(); err != nil {
		return pkgerrors.Wrapf(err, "command %q failed", r.String())
	}
	return nil
}
