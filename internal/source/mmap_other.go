//go:build !unix

package source

import "os"

// mapFile reads the file into memory on platforms without mmap.
func mapFile(path string) (*mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readFile(f)
}
