package asm

import "errors"

// Assembly failures are fatal to the assemble run, same stance as the
// machine package's run-time errors (spec §7): a malformed source
// program aborts with a diagnostic rather than degrading gracefully.
var (
	errLexFailure      = errors.New("asm: lexical analysis failed")
	errParseFailure    = errors.New("asm: parse failure")
	errUnknownLabel    = errors.New("asm: reference to undefined label")
	errUnknownRegister = errors.New("asm: unknown register name")
	errUnknownMnemonic = errors.New("asm: unknown instruction mnemonic")
	errImmediateRange  = errors.New("asm: immediate does not fit in the encoded field")
	errMissingEntry    = errors.New("asm: no _start label defined")
	errCorruptCodeFile = errors.New("asm: machine-code file is corrupt")
)
