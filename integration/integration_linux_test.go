// Copyright 2018 CNI authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package integration_test

import (
	"fmt"
	"math/rand"
	"os"
	"os/exec"
	"strconv"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/gexec"

	"github.com/containernetworking/devserver/pkg/testutils"
)

var _ = Describe("devserver in a network namespace", func() {
	var ns Namespace

	BeforeEach(func() {
		if os.Geteuid() != 0 {
			Skip("creating network namespaces requires root")
		}
		if _, err := exec.LookPath("ip"); err != nil {
			Skip("iproute2 is not installed")
		}
		ns = Namespace(fmt.Sprintf("devserver-test-%x", rand.Int31()))
		ns.Add()
		run("ip", "netns", "exec", ns.ShortName(), "ip", "link", "set", "lo", "up")
	})

	AfterEach(func() {
		if ns != "" {
			ns.Del()
		}
	})

	It("binds inside the namespace and not in the host", func() {
		port, err := testutils.FreePort()
		Expect(err).NotTo(HaveOccurred())

		session := startDevserver("-port", strconv.Itoa(port), "-netns", ns.LongName())
		defer func() { session.Kill().Wait() }()
		Eventually(countLines(session, listeningLine)).Should(Equal(1))

		By("refusing connections from the host namespace")
		_, err = testutils.Dial(port)
		Expect(err).To(HaveOccurred())

		By("accepting connections from inside the namespace")
		run("ip", "netns", "exec", ns.ShortName(), "bash", "-c", fmt.Sprintf("exec 3<>/dev/tcp/127.0.0.1/%d", port))
		Eventually(countLines(session, connectionLine)).Should(Equal(1))
	})

	It("reports a missing namespace as an error line", func() {
		session := startDevserver("-port", "0", "-netns", "/var/run/netns/does-not-exist")
		Eventually(session).Should(gexec.Exit(0))
		Expect(countLines(session, errorLine)()).To(Equal(1))
		Expect(countLines(session, listeningLine)()).To(Equal(0))
	})
})

func run(bin string, args ...string) string {
	cmd := exec.Command(bin, args...)
	session, err := gexec.Start(cmd, GinkgoWriter, GinkgoWriter)
	Expect(err).NotTo(HaveOccurred())
	Eventually(session, "5s").Should(gexec.Exit(0))
	return string(session.Out.Contents())
}

type Namespace string

func (n Namespace) LongName() string {
	return fmt.Sprintf("/var/run/netns/%s", n)
}

func (n Namespace) ShortName() string {
	return string(n)
}

func (n Namespace) Add() {
	run("ip", "netns", "add", string(n))
}

func (n Namespace) Del() {
	run("ip", "netns", "del", string(n))
}
