/*
Package contracts provides access to compiled Payroll Attestation contract.

Contract artifacts are produced by neo-go compiler next to the contract
sources:

	attestation/contract.nef
	attestation/manifest.json

They're read from any fs.FS rooted at this directory, see Read and ReadDir.
*/
package contracts

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/nspcc-dev/neo-go/pkg/io"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/manifest"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/nef"
)

const (
	attestationDir = "attestation"

	nefName      = "contract.nef"
	manifestName = "manifest.json"
)

// Contract groups information about compiled Neo contract.
type Contract struct {
	NEF      nef.File
	Manifest manifest.Manifest
}

var (
	errInvalidNEF      = errors.New("invalid NEF")
	errInvalidManifest = errors.New("invalid manifest")
)

// Read returns Payroll Attestation contract stored in the given fs.FS.
func Read(_fs fs.FS) (Contract, error) {
	c, err := readContractFromDir(_fs, attestationDir)
	if err != nil {
		return c, fmt.Errorf("read contract %s: %w", attestationDir, err)
	}
	return c, nil
}

// ReadDir is the same as Read but reads from the directory of the local file
// system, usually the contracts directory of this repository.
func ReadDir(dir string) (Contract, error) {
	return Read(os.DirFS(dir))
}

func readContractFromDir(_fs fs.FS, dir string) (Contract, error) {
	var c Contract

	// fs.FS uses "/" even on Windows, so filepath.Join() is not applicable.
	fNEF, err := _fs.Open(dir + "/" + nefName)
	if err != nil {
		return c, fmt.Errorf("open NEF: %w", err)
	}
	defer fNEF.Close()

	fManifest, err := _fs.Open(dir + "/" + manifestName)
	if err != nil {
		return c, fmt.Errorf("open manifest: %w", err)
	}
	defer fManifest.Close()

	bReader := io.NewBinReaderFromIO(fNEF)
	c.NEF.DecodeBinary(bReader)
	if bReader.Err != nil {
		return c, fmt.Errorf("%w: %w", errInvalidNEF, bReader.Err)
	}

	err = json.NewDecoder(fManifest).Decode(&c.Manifest)
	if err != nil {
		return c, fmt.Errorf("%w: %w", errInvalidManifest, err)
	}

	return c, nil
}
