// Copyright 2026 The Handscan Project Contributors.
// SPDX-License-Identifier: Apache-2.0
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

package ota

import (
	"fmt"
	"os"
	"path/filepath"
)

// Store is the staging storage a transfer writes into.
type Store interface {
	// Append writes data at the end of the pending image and returns
	// the number of bytes written.
	Append(data []byte) (int, error)
	// Size returns the current pending image size in bytes.
	Size() (int64, error)
	// Free returns the free capacity of the underlying storage.
	Free() (uint64, error)
	// Used returns the bytes already consumed on the underlying storage.
	Used() (uint64, error)
	// Remove deletes the pending image.
	Remove() error
	// Format erases the staging area entirely.
	Format() error
	// Close releases any held file handles.
	Close() error
}

const imageFileName = "update.bin"

// FileStore stages the incoming image as a single file in a directory.
type FileStore struct {
	file *os.File
	dir  string
}

// NewFileStore creates the staging directory if needed and returns a
// store writing to update.bin inside it.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create staging dir %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) imagePath() string {
	return filepath.Join(s.dir, imageFileName)
}

// Append writes data at the end of the pending image.
func (s *FileStore) Append(data []byte) (int, error) {
	if s.file == nil {
		f, err := os.OpenFile(s.imagePath(), os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			return 0, fmt.Errorf("failed to open image file: %w", err)
		}
		s.file = f
	}
	n, err := s.file.Write(data)
	if err != nil {
		return n, fmt.Errorf("failed to append to image file: %w", err)
	}
	return n, nil
}

// Size returns the pending image size, or 0 when no image exists.
func (s *FileStore) Size() (int64, error) {
	info, err := os.Stat(s.imagePath())
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to stat image file: %w", err)
	}
	return info.Size(), nil
}

// Free returns the free capacity of the filesystem holding the
// staging directory.
func (s *FileStore) Free() (uint64, error) {
	free, _, err := fsUsage(s.dir)
	return free, err
}

// Used returns the consumed capacity of the filesystem holding the
// staging directory.
func (s *FileStore) Used() (uint64, error) {
	_, used, err := fsUsage(s.dir)
	return used, err
}

// Remove deletes the pending image.
func (s *FileStore) Remove() error {
	if err := s.Close(); err != nil {
		return err
	}
	if err := os.Remove(s.imagePath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove image file: %w", err)
	}
	return nil
}

// Format erases everything in the staging directory.
func (s *FileStore) Format() error {
	if err := s.Close(); err != nil {
		return err
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("failed to read staging dir: %w", err)
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(s.dir, entry.Name())); err != nil {
			return fmt.Errorf("failed to erase %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// Close releases the image file handle if one is open.
func (s *FileStore) Close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	if err != nil {
		return fmt.Errorf("failed to close image file: %w", err)
	}
	return nil
}

// ImagePath returns the path the pending image is staged at.
func (s *FileStore) ImagePath() string {
	return s.imagePath()
}
