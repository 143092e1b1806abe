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

import "errors"

var (
	// ErrAlreadyListening is returned by Listen on a bound server.
	ErrAlreadyListening = errors.New("devserver: already listening")
	// ErrAlreadyServing is returned by a second concurrent Serve.
	ErrAlreadyServing = errors.New("devserver: already serving")
	// ErrNotListening is returned by Serve and Close before a successful Listen.
	ErrNotListening = errors.New("devserver: not listening")
	// ErrServerClosed is returned by Serve after Close, and by any call on a
	// closed server.
	ErrServerClosed = errors.New("devserver: server closed")
)
