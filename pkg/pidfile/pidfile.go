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

// Package pidfile writes a pidfile guarded by an exclusive file lock, so two
// dev servers configured with the same pidfile cannot both run.
package pidfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/alexflint/go-filemutex"
	pkgerrors "github.com/pkg/errors"
)

// ErrLocked is returned by Write when another process holds the pidfile.
var ErrLocked = errors.New("pidfile is locked by another process")

type PIDFile struct {
	path string
	lock *filemutex.FileMutex
}

// Write locks path and writes the current pid to it. path must be absolute.
func Write(path string) (*PIDFile, error) {
	if !filepath.IsAbs(path) {
		return nil, fmt.Errorf("Error writing pidfile %q: path not absolute", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, pkgerrors.Wrapf(err, "Error writing pidfile %q", path)
	}

	lock, err := filemutex.New(path)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "Error locking pidfile %q", path)
	}
	if err := lock.TryLock(); err != nil {
		lock.Close()
		if errors.Is(err, filemutex.AlreadyLocked) {
			return nil, pkgerrors.Wrapf(ErrLocked, "Error locking pidfile %q", path)
		}
		return nil, pkgerrors.Wrapf(err, "Error locking pidfile %q", path)
	}

	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		lock.Close()
		return nil, pkgerrors.Wrapf(err, "Error writing pidfile %q", path)
	}
	return &PIDFile{path: path, lock: lock}, nil
}

// Path is the pidfile location.
func (p *PIDFile) Path() string {
	return p.path
}

// Remove deletes the pidfile and releases the lock.
func (p *PIDFile) Remove() error {
	rmErr := os.Remove(p.path)
	if rmErr != nil && os.IsNotExist(rmErr) {
		rmErr = nil
	}
	p.lock.Unlock()
	closeErr := p.lock.Close()
	if rmErr != nil {
		return pkgerrors.Wrapf(rmErr, "Error removing pidfile %q", p.path)
	}
	return closeErr
}

// Read returns the pid recorded in path.
func Read(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, pkgerrors.Wrapf(err, "invalid pidfile %q", path)
	}
	return pid, nil
}
