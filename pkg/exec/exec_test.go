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

package exec_test

import (
	"bytes"
	"context"
	"errors"
	"io"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/containernetworking/devserver/pkg/exec"
)

type fakeCmd struct {
	name   string
	args   []string
	stdout io.Writer
	err    error
}

func (c *fakeCmd) Run() error {
	if c.stdout != nil {
		io.WriteString(c.stdout, "ran "+c.name)
	}
	return c.err
}
func (c *fakeCmd) SetStderr(io.Writer)     {}
func (c *fakeCmd) SetStdout(out io.Writer) { c.stdout = out }

type fakeExec struct {
	cmds    []*fakeCmd
	runErr  error
	missing bool
}

func (f *fakeExec) CommandContext(_ context.Context, name string, args ...string) exec.Cmd {
	c := &fakeCmd{name: name, args: args, err: f.runErr}
	f.cmds = append(f.cmds, c)
	return c
}

func (f *fakeExec) LookPath(file string) (string, error) {
	if f.missing {
		return "", errors.New("executable file not found in $PATH")
	}
	return "/usr/bin/" + file, nil
}

var _ = Describe("ParseCommandLine", func() {
	It("splits words and honours quotes", func() {
		name, args, err := exec.ParseCommandLine(`docker compose -f "dev compose.yml" down`)
		Expect(err).NotTo(HaveOccurred())
		Expect(name).To(Equal("docker"))
		Expect(args).To(Equal([]string{"compose", "-f", "dev compose.yml", "down"}))
	})

	It("expands environment variables", func() {
		GinkgoT().Setenv("DEV_PROJECT", "harness")
		_, args, err := exec.ParseCommandLine(`docker compose -p $DEV_PROJECT down`)
		Expect(err).NotTo(HaveOccurred())
		Expect(args).To(Equal([]string{"compose", "-p", "harness", "down"}))
	})

	It("rejects empty commands", func() {
		_, _, err := exec.ParseCommandLine("   ")
		Expect(err).To(MatchError("empty command"))
	})

	It("rejects unbalanced quotes", func() {
		_, _, err := exec.ParseCommandLine(`echo "oops`)
		Expect(err).To(MatchError(ContainSubstring("failed to parse command")))
	})

	It("rejects shell operators", func() {
		_, _, err := exec.ParseCommandLine(`docker ps && docker rm -f x`)
		Expect(err).To(MatchError(ContainSubstring("shell operators are not supported")))
	})
})

var _ = Describe("Runner", func() {
	It("runs the resolved program with its arguments", func() {
		fe := &fakeExec{}
		out := &bytes.Buffer{}
		r, err := exec.NewRunner(fe, "docker compose down", out, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(r.String()).To(Equal("/usr/bin/docker compose down"))

		Expect(r.Run(context.Background())).To(Succeed())
		Expect(fe.cmds).To(HaveLen(1))
		Expect(fe.cmds[0].name).To(Equal("/usr/bin/docker"))
		Expect(fe.cmds[0].args).To(Equal([]string{"compose", "down"}))
		Expect(out.String()).To(Equal("ran /usr/bin/docker"))
	})

	It("fails when the program cannot be found", func() {
		_, err := exec.NewRunner(&fakeExec{missing: true}, "nope", nil, nil)
		Expect(err).To(MatchError(ContainSubstring(`failed to find "nope"`)))
	})

	It("annotates run failures", func() {
		fe := &fakeExec{runErr: errors.New("exit status 3")}
		r, err := exec.NewRunner(fe, "docker rm -f dev", nil, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(r.Run(context.Background())).To(MatchError(`command "/usr/bin/docker rm -f dev" failed: exit status 3`))
	})

	It("runs real commands", func() {
		out := &bytes.Buffer{}
		r, err := exec.NewRunner(exec.New(), `sh -c "echo closing"`, out, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(r.Run(context.Background())).To(Succeed())
		Expect(out.String()).To(Equal("closing\n"))
	})
})
