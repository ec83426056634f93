/*
Package attestation implements Payroll Attestation contract.

The contract is a privacy-preserving record of off-chain payments. It keeps
two stores sharing one access policy:

  - payment attestations: one 32-byte commitment per claim. Amounts, tokens
    and recipients never reach the chain; an auditor holding the preimage
    recomputes SHA-256 and compares it with the stored commitment.
  - payroll receipts: one receipt per payroll run. Every receipt spends a
    nonce of its authorizer, so the same authorization can never back two
    payroll runs.

The deployer becomes the owner for the contract lifetime. The owner may set an
allowed caller: the only account which can record payments and receipts. No
allowed caller means recording is open to anyone.

Both stores are append-only: there are no methods to change or delete records.
A repeated claim or payroll ID fails the transaction, nothing is silently
skipped.

# Contract notifications

PaymentRecorded notification. It is produced on every new payment attestation.

	name: PaymentRecorded
	parameters:
	  - name: claimID
	    type: String
	  - name: executionRef
	    type: String
	  - name: commitment
	    type: ByteArray

ReceiptRecorded notification. It is produced on every new payroll receipt.

	name: ReceiptRecorded
	parameters:
	  - name: payrollID
	    type: String
	  - name: authorizerID
	    type: String
	  - name: nonce
	    type: Integer
	  - name: status
	    type: String

AllowedCallerChanged notification. It is produced when the owner changes the
allowed caller. Empty caller means that recording is open to anyone.

	name: AllowedCallerChanged
	parameters:
	  - name: caller
	    type: ByteArray
*/
package attestation

/*
Contract storage model.

Current conventions:
 <claim>: SHA-256 of the claim ID
 <payroll>: SHA-256 of the payroll ID
 <pair>: SHA-256 of '<authorizer ID>::<decimal nonce>'

# Summary
Key-value storage format:
 - 'o' -> interop.Hash160
   contract owner
 - 'a' -> interop.Hash160
   allowed caller, absent if recording is unrestricted
 - 'p<claim>' -> std.Serialize(PaymentAttestation)
   payment attestation
 - 'r<payroll>' -> std.Serialize(ReceiptRecord)
   payroll receipt
 - 'n<pair>' -> string
   ID of the payroll which spent the nonce

# Hashing
Identifiers are hashed because their length is not limited while storage keys
are.
*/
