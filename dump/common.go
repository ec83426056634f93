package dump

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nspcc-dev/neo-go/pkg/core/state"
)

// ID is a unique identifier of the dump prepared according to the model
// described in the current package.
type ID struct {
	// Label of the dump source (e.g. testnet, mainnet).
	Label string
	// Blockchain height at which the state was pulled.
	Block uint32
}

// String returns hyphen-separated ID fields.
func (x ID) String() string {
	return x.Label + sep + strconv.FormatUint(uint64(x.Block), 10)
}

// decodes ID fields from the file name. Label may contain separators, block
// is the last number before the file suffix.
func (x *ID) decodeFileName(s string) error {
	var suffix string
	switch {
	case strings.HasSuffix(s, sep+statesFileSuffix):
		suffix = sep + statesFileSuffix
	case strings.HasSuffix(s, sep+storageFileSuffix):
		suffix = sep + storageFileSuffix
	default:
		return fmt.Errorf("unexpected file suffix, expected '%s' or '%s'", statesFileSuffix, storageFileSuffix)
	}

	s = strings.TrimSuffix(s, suffix)

	i := strings.LastIndex(s, sep)
	if i <= 0 {
		return fmt.Errorf("expected '%s'-separated label and block", sep)
	}

	n, err := strconv.ParseUint(s[i+1:], 10, 32)
	if err != nil {
		return fmt.Errorf("decode block number from '%s': %w", s[i+1:], err)
	}

	x.Label = s[:i]
	x.Block = uint32(n)

	return nil
}

// global encoding of binary values.
var _encoding = base64.StdEncoding

// dumpContractState is a JSON-encoded information about the dumped contract.
type dumpContractState struct {
	Name  string         `json:"name"`
	State state.Contract `json:"state"`
}

// dumpStreams groups data streams for contracts' states and storages.
type dumpStreams struct {
	contracts, storageItems io.ReadWriteCloser
}

// close closes all streams.
func (x *dumpStreams) close() {
	if x.storageItems != nil {
		_ = x.storageItems.Close()
	}
	if x.contracts != nil {
		_ = x.contracts.Close()
	}
}

const (
	// word separator used in dump file naming
	sep = "-"
	// suffix of file with contracts' states
	statesFileSuffix = "contracts.json"
	// suffix of file with contracts' storage items
	storageFileSuffix = "storage.csv"
)

// initDumpStreams opens data streams for the dump files located in the
// specified directory. If read flag is set, streams are read-only. Otherwise,
// files must not exist, and streams are write only.
func initDumpStreams(d *dumpStreams, dir string, id ID, read bool) error {
	var err error

	pathStorage := filepath.Join(dir, strings.Join([]string{id.String(), storageFileSuffix}, sep))
	pathContracts := filepath.Join(dir, strings.Join([]string{id.String(), statesFileSuffix}, sep))

	var flag int
	var perm os.FileMode

	if read {
		flag = os.O_RDONLY
	} else {
		for _, p := range []string{pathStorage, pathContracts} {
			if err = checkFileNotExists(p); err != nil {
				return err
			}
		}

		flag = os.O_CREATE | os.O_WRONLY
		perm = 0600
	}

	d.storageItems, err = os.OpenFile(pathStorage, flag, perm)
	if err != nil {
		return fmt.Errorf("open file with storage items: %w", err)
	}

	d.contracts, err = os.OpenFile(pathContracts, flag, perm)
	if err != nil {
		_ = d.storageItems.Close()
		d.storageItems = nil
		return fmt.Errorf("open file with contract states: %w", err)
	}

	return nil
}

// checkFileNotExists checks that there is no file at the specified path.
func checkFileNotExists(p string) error {
	_, err := os.Stat(p)
	if !os.IsNotExist(err) {
		if err == nil {
			err = os.ErrExist
		}
		return fmt.Errorf("file '%s' absence check failed: %w", p, err)
	}
	return nil
}
