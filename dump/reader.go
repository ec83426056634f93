package dump

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/nspcc-dev/neo-go/pkg/core/state"
)

// IterateDumps iterates over all dumps created by the Creator in the specified
// directory (non-recursively), and passes ID and Reader of each dump into f
// in block order. Files not looking like dumps are skipped.
func IterateDumps(dir string, f func(ID, *Reader) error) error {
	entries, err := readDirIfExists(dir)
	if err != nil {
		return err
	}

	var ids []ID

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, sep+statesFileSuffix) {
			continue
		}

		var id ID

		err := id.decodeFileName(name)
		if err != nil {
			return fmt.Errorf("decode dump ID from file name '%s': %w", name, err)
		}

		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool {
		if ids[i].Block != ids[j].Block {
			return ids[i].Block < ids[j].Block
		}
		return ids[i].Label < ids[j].Label
	})

	for i := range ids {
		r, err := Open(dir, ids[i])
		if err != nil {
			return err
		}

		err = f(ids[i], r)
		if err != nil {
			return err
		}
	}

	return nil
}

// Open reads the dump with the given ID from the directory.
func Open(dir string, id ID) (*Reader, error) {
	var streams dumpStreams

	err := initDumpStreams(&streams, dir, id, true)
	if err != nil {
		return nil, fmt.Errorf("init dump streams ('%s'): %w", id, err)
	}
	defer streams.close()

	var r Reader

	err = r.fromDumpStreams(streams.contracts, streams.storageItems)
	if err != nil {
		return nil, fmt.Errorf("init dump reader ('%s'): %w", id, err)
	}

	return &r, nil
}

func readDirIfExists(dir string) ([]fs.DirEntry, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read dump directory: %w", err)
	}
	return entries, nil
}

type kv struct{ k, v []byte }

// Reader reads contracts collected in the superior dump.
type Reader struct {
	states   []dumpContractState
	mStorage map[string][]kv
}

func (x *Reader) fromDumpStreams(rContracts, rStorageItems io.Reader) error {
	err := json.NewDecoder(rContracts).Decode(&x.states)
	if err != nil {
		return fmt.Errorf("decode contract states from JSON: %w", err)
	}

	var rec []string
	var _kv kv

	_csv := csv.NewReader(rStorageItems)
	_csv.FieldsPerRecord = 3
	_csv.ReuseRecord = true

	x.mStorage = make(map[string][]kv)

	for {
		rec, err = _csv.Read()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("read next CSV record: %w", err)
		}

		// out-of-range safety guaranteed by csv settings
		_kv.k, err = _encoding.DecodeString(rec[1])
		if err != nil {
			return fmt.Errorf("decode storage item key: %w", err)
		}

		_kv.v, err = _encoding.DecodeString(rec[2])
		if err != nil {
			return fmt.Errorf("decode storage item value: %w", err)
		}

		x.mStorage[rec[0]] = append(x.mStorage[rec[0]], _kv)
	}
}

// IterateContractStates iterates over all contracts from the superior dump and
// passes their states into f.
func (x *Reader) IterateContractStates(f func(name string, _state state.Contract)) {
	for i := range x.states {
		f(x.states[i].Name, x.states[i].State)
	}
}

// IterateContractStorage passes storage items of the named contract into f.
// IterateContractStorage breaks on any f's error and returns it.
func (x *Reader) IterateContractStorage(name string, f func(key, value []byte) error) error {
	kvs := x.mStorage[name]
	for i := range kvs {
		if err := f(kvs[i].k, kvs[i].v); err != nil {
			return err
		}
	}
	return nil
}
