package datasource

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/vmihailenco/msgpack/v5"
)

// Table file base names inside a delivery directory
const (
	EntriesFile   = "entries"
	HistoryFile   = "history"
	PedigreesFile = "pedigrees"
	PayoutsFile   = "payouts"
)

// supported encodings in lookup order
var extensions = []string{".msgpack", ".json"}

// FileSource reads a delivery directory holding one file per table, each
// either a JSON array or a msgpack array of records with the same keys.
type FileSource struct {
	dir    string
	logger *logrus.Entry
}

// NewFileSource creates a source over dir
func NewFileSource(dir string, logger *logrus.Logger) *FileSource {
	return &FileSource{
		dir:    dir,
		logger: logger.WithField("component", "file_source"),
	}
}

// Name returns the name of the source
func (s *FileSource) Name() string {
	return "file:" + s.dir
}

// Fetch decodes every table file found in the directory. Missing tables are empty.
func (s *FileSource) Fetch(ctx context.Context) (*Bundle, error) {
	info, err := os.Stat(s.dir)
	if err != nil {
		return nil, SourceError{Source: s.Name(), Code: ErrCodeNotFound, Message: "delivery directory unavailable", Err: err}
	}
	if !info.IsDir() {
		return nil, SourceError{Source: s.Name(), Code: ErrCodeUnsupportedType, Message: "delivery path is not a directory"}
	}

	bundle := &Bundle{}
	found := 0
	tables := []struct {
		name string
		dst  interface{}
	}{
		{EntriesFile, &bundle.Entries},
		{HistoryFile, &bundle.History},
		{PedigreesFile, &bundle.Pedigrees},
		{PayoutsFile, &bundle.Payouts},
	}

	for _, table := range tables {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ok, err := s.readTable(table.name, table.dst)
		if err != nil {
			return nil, err
		}
		if ok {
			found++
		}
	}

	if found == 0 {
		return nil, fmt.Errorf("%s: %w", s.Name(), ErrNoData)
	}

	s.logger.WithFields(logrus.Fields{
		"entries":   len(bundle.Entries),
		"history":   len(bundle.History),
		"pedigrees": len(bundle.Pedigrees),
		"payouts":   len(bundle.Payouts),
	}).Info("Read raw tables")

	return bundle, nil
}

// readTable decodes the first existing file of name into dst
func (s *FileSource) readTable(name string, dst interface{}) (bool, error) {
	for _, ext := range extensions {
		path := filepath.Join(s.dir, name+ext)
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return false, SourceError{Source: s.Name(), Code: ErrCodeNotFound, Message: "failed to read " + path, Err: err}
		}
		if err := decode(ext, data, dst); err != nil {
			return false, SourceError{Source: s.Name(), Code: ErrCodeDecodeFailed, Message: "failed to decode " + path, Err: err}
		}
		s.logger.WithField("path", path).Debug("Decoded table file")
		return true, nil
	}
	return false, nil
}

func decode(ext string, data []byte, dst interface{}) error {
	switch strings.ToLower(ext) {
	case ".json":
		return json.Unmarshal(data, dst)
	case ".msgpack":
		dec := msgpack.NewDecoder(bytes.NewReader(data))
		dec.SetCustomStructTag("json")
		return dec.Decode(dst)
	default:
		return fmt.Errorf("unsupported extension %q", ext)
	}
}
