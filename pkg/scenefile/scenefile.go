// Package scenefile reads and writes brush scenes. JSON documents are the
// interchange format; msgpack snapshots carry the same document in a
// compact binary encoding.
package scenefile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/quarry/pkg/csg"
	"github.com/ugorji/go/codec"
)

// File extensions understood by Save and Load.
const (
	ExtJSON     = ".json"
	ExtSnapshot = ".qsnap"
)

// ErrUnknownFormat is returned for a path whose extension is neither
// ExtJSON nor ExtSnapshot.
var ErrUnknownFormat = errors.New("scenefile: unknown format")

// WriteJSON encodes the scene document to w.
func WriteJSON(w io.Writer, sc *csg.Scene, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(sc.Document()); err != nil {
		return fmt.Errorf("scenefile: encode json: %w", err)
	}
	return nil
}

// ReadJSON decodes a document from r and restores it into sc. Unknown
// fields are rejected.
func ReadJSON(r io.Reader, sc *csg.Scene) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var doc csg.Document
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("scenefile: decode json: %w", err)
	}
	return sc.Restore(&doc)
}

func msgpackHandle() *codec.MsgpackHandle {
	h := &codec.MsgpackHandle{}
	h.WriteExt = true
	h.Canonical = true
	return h
}

// WriteMsgpack encodes the scene document to w as msgpack.
func WriteMsgpack(w io.Writer, sc *csg.Scene) error {
	if err := codec.NewEncoder(w, msgpackHandle()).Encode(sc.Document()); err != nil {
		return fmt.Errorf("scenefile: encode msgpack: %w", err)
	}
	return nil
}

// ReadMsgpack decodes a msgpack document from r and restores it into sc.
func ReadMsgpack(r io.Reader, sc *csg.Scene) error {
	var doc csg.Document
	if err := codec.NewDecoder(r, msgpackHandle()).Decode(&doc); err != nil {
		return fmt.Errorf("scenefile: decode msgpack: %w", err)
	}
	return sc.Restore(&doc)
}

func format(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ExtJSON, ExtSnapshot:
		return ext, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, path)
}

// Save writes the scene to path in the format its extension names.
func Save(path string, sc *csg.Scene) (err error) {
	ext, err := format(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("scenefile: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("scenefile: %w", cerr)
		}
	}()

	if ext == ExtSnapshot {
		return WriteMsgpack(f, sc)
	}
	return WriteJSON(f, sc, true)
}

// Load restores the scene saved at path. sc is left unchanged on error.
func Load(path string, sc *csg.Scene) error {
	ext, err := format(path)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("scenefile: %w", err)
	}
	defer f.Close()

	if ext == ExtSnapshot {
		return ReadMsgpack(f, sc)
	}
	return ReadJSON(f, sc)
}
