// Package toml reads the configuration file and renders TOML sources as
// markdown for indexing.
package toml

import (
	"bytes"
	"errors"
	"io/fs"
	"os"

	"github.com/fwojciec/docindex"
	"github.com/pelletier/go-toml/v2"
)

// LoadConfig reads the file at path over the defaults in cfg. A missing
// file leaves cfg unchanged. Unknown keys are rejected so typos surface.
func LoadConfig(path string, cfg *docindex.Config) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	} else if err != nil {
		return docindex.Errorf(docindex.ECONFIG, "read config: %v", err)
	}

	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return docindex.Errorf(docindex.ECONFIG, "%s: unknown keys:\n%s", path, strict.String())
		}
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return docindex.Errorf(docindex.ECONFIG, "%s:%d:%d: %v", path, row, col, derr)
		}
		if docindex.ErrorCode(err) == docindex.ECONFIG {
			return err
		}
		return docindex.Errorf(docindex.ECONFIG, "%s: %v", path, err)
	}
	return nil
}
