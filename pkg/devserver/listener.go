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
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/coreos/go-systemd/v22/activation"
)

// listen returns the socket-activated listener if there is one, otherwise
// binds Host:Port (inside NetNS when set).
func (s *Server) listen(ctx context.Context) (net.Listener, error) {
	inherited := s.opts.Listeners
	if inherited == nil {
		inherited = activation.Listeners
	}
	l, err := inherited()
	if err != nil {
		return nil, err
	}

	switch {
	case len(l) == 0:
	case len(l) == 1:
		if l[0] == nil {
			return nil, fmt.Errorf("LISTEN_FDS=1 but no FD found")
		}
		return l[0], nil
	default:
		return nil, fmt.Errorf("too many (%v) FDs passed through socket activation", len(l))
	}

	addr := net.JoinHostPort(s.opts.Host, strconv.Itoa(s.opts.Port))
	bind := func() (net.Listener, error) {
		var lc net.ListenConfig
		return lc.Listen(ctx, "tcp", addr)
	}
	if s.opts.NetNS != "" {
		return listenInNetNS(s.opts.NetNS, bind)
	}
	return bind()
}
