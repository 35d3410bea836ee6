// Package bustest provides an in-memory I2C bus that records every transfer.
// It can be used in place of a real adapter in tests of register level drivers.
//
// Example usage:
//
//	bus := bustest.NewRecorder()
//	bus.FailOnCall(3, errors.New("nack"))
//	dev := regmap.New(bus, 0x54)
//	err := dev.Apply(ctx, program)
//	writes := bus.WritesTo(0x54)
package bustest

import (
	"context"
	"fmt"
	"sync"

	"github.com/mklimuk/mira"
)

var _ mira.I2CBus = &Recorder{}

type Op string

const (
	OpWrite Op = "write"
	OpRead  Op = "read"
)

// Transfer is a single successful bus transaction.
type Transfer struct {
	Op   Op
	Addr byte
	Data []byte
}

// ReadBehaviorFunc fills buffer for a read from address. lastWrite holds the
// most recent bytes written to the same address (usually a register pointer).
type ReadBehaviorFunc func(address byte, lastWrite []byte, buffer []byte) error

// Recorder is a fake I2C bus. Calls are counted from 1 across reads and writes,
// failed calls are counted but not recorded as transfers.
type Recorder struct {
	mx        sync.Mutex
	transfers []Transfer
	lastWrite map[byte][]byte
	calls     int
	failAt    map[int]error
	releases  int
	onRead    ReadBehaviorFunc
}

func NewRecorder() *Recorder {
	return &Recorder{
		lastWrite: make(map[byte][]byte),
		failAt:    make(map[int]error),
	}
}

// FailOnCall makes the n-th transport call (1-based) return err.
func (r *Recorder) FailOnCall(n int, err error) {
	r.mx.Lock()
	defer r.mx.Unlock()
	r.failAt[n] = err
}

// OnRead installs the behavior used to answer reads. Without it reads return zeroes.
func (r *Recorder) OnRead(behavior ReadBehaviorFunc) {
	r.mx.Lock()
	defer r.mx.Unlock()
	r.onRead = behavior
}

func (r *Recorder) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	r.mx.Lock()
	defer r.mx.Unlock()
	r.calls++
	if err, ok := r.failAt[r.calls]; ok {
		return fmt.Errorf("write to %#x failed: %w", address, err)
	}
	data := append([]byte(nil), buffer...)
	r.transfers = append(r.transfers, Transfer{Op: OpWrite, Addr: address, Data: data})
	r.lastWrite[address] = data
	return nil
}

func (r *Recorder) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	r.mx.Lock()
	defer r.mx.Unlock()
	r.calls++
	if err, ok := r.failAt[r.calls]; ok {
		return fmt.Errorf("read from %#x failed: %w", address, err)
	}
	for i := range buffer {
		buffer[i] = 0
	}
	if r.onRead != nil {
		if err := r.onRead(address, r.lastWrite[address], buffer); err != nil {
			return err
		}
	}
	r.transfers = append(r.transfers, Transfer{Op: OpRead, Addr: address, Data: append([]byte(nil), buffer...)})
	return nil
}

func (r *Recorder) Release(ctx context.Context) error {
	r.mx.Lock()
	defer r.mx.Unlock()
	r.releases++
	return nil
}

// Calls returns the number of transport calls including failed ones.
func (r *Recorder) Calls() int {
	r.mx.Lock()
	defer r.mx.Unlock()
	return r.calls
}

// Transfers returns a copy of all recorded transfers in order.
func (r *Recorder) Transfers() []Transfer {
	r.mx.Lock()
	defer r.mx.Unlock()
	return append([]Transfer(nil), r.transfers...)
}

// WritesTo returns payloads of all successful writes to address in order.
func (r *Recorder) WritesTo(address byte) [][]byte {
	r.mx.Lock()
	defer r.mx.Unlock()
	var res [][]byte
	for _, t := range r.transfers {
		if t.Op == OpWrite && t.Addr == address {
			res = append(res, t.Data)
		}
	}
	return res
}

// Reset drops recorded transfers, counters and injected failures.
func (r *Recorder) Reset() {
	r.mx.Lock()
	defer r.mx.Unlock()
	r.transfers = nil
	r.calls = 0
	r.releases = 0
	r.failAt = make(map[int]error)
	r.lastWrite = make(map[byte][]byte)
}
