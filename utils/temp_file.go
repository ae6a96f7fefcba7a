package utils

import (
	"io/ioutil"
	"os"
)

// GetTempFile creates an empty temporary file with the given
// extension under dir and returns its path. The caller owns the file
// and is responsible for removing it on every exit path.
func GetTempFile(dir, extension string) (string, error) {
	f, err := ioutil.TempFile(dir, "wms_tile_*."+extension)
	if err != nil {
		return "", err
	}
	f.Close()
	return f.Name(), nil
}

// RemoveTempFile deletes a temporary output artifact. Removal errors
// are ignored: the file may already be gone on the error path.
func RemoveTempFile(path string) {
	if len(path) > 0 {
		os.Remove(path)
	}
}
