// Package reader loads firmware images from disk and reads scalar
// parameters out of them.
package reader

import (
	"fmt"
	"os"

	"github.com/tosih/ecu-tuner/pkg/firmware"
)

// MaxImageSize bounds what Load will read. ECU flash chips of this era
// top out well below it.
const MaxImageSize = 64 << 20

// Load reads a whole firmware image into memory.
func Load(path string) (*firmware.Image, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reader: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("reader: %s is a directory", path)
	}
	if info.Size() > MaxImageSize {
		return nil, fmt.Errorf("reader: %s is %d bytes, limit is %d", path, info.Size(), MaxImageSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reader: %w", err)
	}
	return firmware.New(data), nil
}
