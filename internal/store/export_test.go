package store

import "os"

// SetWriteFile replaces the primary writer and returns a restore func.
func (s *Store) SetWriteFile(fn func(path string, data []byte, perm os.FileMode) error) func() {
	prev := s.writeFile
	s.writeFile = fn
	return func() { s.writeFile = prev }
}
