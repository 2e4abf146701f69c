package artifact

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"io"
	"os"

	"github.com/NorQuest-MLAD-Courses/cmpt2500w26-project-tutorial/pkg/data"
	"github.com/NorQuest-MLAD-Courses/cmpt2500w26-project-tutorial/pkg/errs"
)

const magic = "churn-artifact"

// header precedes the payload so the version can be checked before any
// fitted state is decoded.
type header struct {
	Magic         string
	SchemaVersion int
	Checksum      string // hex sha256 of the payload
}

// Store reads and writes artifacts of exactly one schema version.
type Store struct {
	Version int
}

func NewStore() Store { return Store{Version: CurrentVersion} }

// Save stamps a with the store's version and atomically replaces path.
func (s Store) Save(a *Artifact, path string) error {
	a.SchemaVersion = s.Version
	var payload bytes.Buffer
	if err := gob.NewEncoder(&payload).Encode(a); err != nil {
		return errs.IO(path, err)
	}
	sum := sha256.Sum256(payload.Bytes())
	h := header{Magic: magic, SchemaVersion: s.Version, Checksum: hex.EncodeToString(sum[:])}
	return data.WriteFileAtomic(path, func(w io.Writer) error {
		enc := gob.NewEncoder(w)
		if err := enc.Encode(h); err != nil {
			return err
		}
		return enc.Encode(payload.Bytes())
	})
}

// Load reads path. Any version other than the store's is an
// ArtifactVersionError and nothing else is decoded.
func (s Store) Load(path string) (*Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.IO(path, err)
	}
	defer f.Close()

	dec := gob.NewDecoder(bufio.NewReader(f))
	var h header
	if err := dec.Decode(&h); err != nil {
		return nil, errs.IO(path, err)
	}
	if h.Magic != magic {
		return nil, errs.IOf(path, "not a churn artifact")
	}
	if h.SchemaVersion != s.Version {
		return nil, errs.Version(path, h.SchemaVersion, s.Version)
	}

	var payload []byte
	if err := dec.Decode(&payload); err != nil {
		return nil, errs.IO(path, err)
	}
	sum := sha256.Sum256(payload)
	if hex.EncodeToString(sum[:]) != h.Checksum {
		return nil, errs.IOf(path, "checksum mismatch, file is corrupt")
	}
	var a Artifact
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&a); err != nil {
		return nil, errs.IO(path, err)
	}
	if a.SchemaVersion != h.SchemaVersion {
		return nil, errs.IO(path, errors.New("header and payload versions disagree"))
	}
	return &a, nil
}
