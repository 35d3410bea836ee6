package mira

import (
	"context"
	"errors"
	"fmt"
)

var ErrBusBusy = fmt.Errorf("I2C engine is busy (command not completed)")

// ErrShortTransfer is returned by bus backends when fewer bytes than requested
// were moved over the wire. It is never a partial success.
var ErrShortTransfer = errors.New("short transfer")

type AddressableReader interface {
	ReadFromAddr(ctx context.Context, address byte, buffer []byte) error
}

type AddressableWriter interface {
	WriteToAddr(ctx context.Context, address byte, buffer []byte) error
	Release(ctx context.Context) error
}

type I2CBus interface {
	AddressableReader
	AddressableWriter
}

// CheckTransfer converts a byte count reported by a backend into an error when
// it does not match the expected transfer size.
func CheckTransfer(op string, expected, actual int) error {
	if expected != actual {
		return fmt.Errorf("%s: %w: expected %d bytes, got %d", op, ErrShortTransfer, expected, actual)
	}
	return nil
}
