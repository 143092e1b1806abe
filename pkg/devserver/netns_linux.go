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

package devserver

import (
	"net"
	"runtime"

	"github.com/pkg/errors"
	"github.com/vishvananda/netns"
)

// listenInNetNS runs bind on a dedicated OS thread switched into the
// namespace at path. The socket stays in that namespace after the thread
// switches back.
func listenInNetNS(path string, bind func() (net.Listener, error)) (net.Listener, error) {
	type result struct {
		ln  net.Listener
		err error
	}
	ch := make(chan result, 1)

	go func() {
		// A thread that cannot be switched back is left locked so the
		// runtime discards it when this goroutine exits.
		runtime.LockOSThread()

		orig, err := netns.Get()
		if err != nil {
			runtime.UnlockOSThread()
			ch <- result{err: errors.Wrap(err, "failed to get current netns")}
			return
		}
		defer orig.Close()

		target, err := netns.GetFromPath(path)
		if err != nil {
			runtime.UnlockOSThread()
			ch <- result{err: errors.Wrapf(err, "failed to open netns %q", path)}
			return
		}
		defer target.Close()

		if err := netns.Set(target); err != nil {
			runtime.UnlockOSThread()
			ch <- result{err: errors.Wrapf(err, "failed to enter netns %q", path)}
			return
		}

		ln, err := bind()
		if rerr := netns.Set(orig); rerr != nil {
			if ln != nil {
				ln.Close()
			}
			ch <- result{err: errors.Wrap(rerr, "failed to restore netns")}
			return
		}
		runtime.UnlockOSThread()
		ch <- result{ln: ln, err: err}
	}()

	r := <-ch
	return r.ln, r.err
}
