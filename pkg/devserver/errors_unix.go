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

//go:build !windows

package devserver

import (
	"errors"
	"net"

	"golang.org/x/sys/unix"
)

// IsAddrInUse reports whether err comes from binding an address that
// another socket already holds.
func IsAddrInUse(err error) bool {
	return errors.Is(err, unix.EADDRINUSE)
}

// isTransient reports whether an Accept error is worth retrying.
func isTransient(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	for _, errno := range []unix.Errno{unix.ECONNABORTED, unix.ECONNRESET, unix.EMFILE, unix.ENFILE, unix.ENOBUFS, unix.ENOMEM, unix.EINTR} {
		if errors.Is(err, errno) {
			return true
		}
	}
	return false
}
