/*
Package dump provides I/O operations for snapshots of Payroll Attestation
contract state.

A snapshot holds contract state along with its raw storage taken at a
particular block. Auditors use it to inspect recorded payments, receipts and
spent nonces offline, as well as to compare the ledger between blocks.

The package works with dumps stored in the file system using human-readable
encoding.
*/
package dump
