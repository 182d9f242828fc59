package dispatcher

import (
	"encoding/base64"
	"os"
)

// persistPNG writes a base64-encoded PNG screenshot to disk. Screenshot
// failures never fail the action (spec §4.E), so callers only ever
// discard this error.
func persistPNG(path, base64PNG string) error {
	data, err := base64.StdEncoding.DecodeString(base64PNG)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
