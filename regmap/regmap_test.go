package regmap

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/mira"
	"github.com/mklimuk/mira/bustest"
)

// MockI2CBus is a mock implementation of mira.I2CBus using testify/mock
type MockI2CBus struct {
	mock.Mock
}

func (m *MockI2CBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	args := m.Called(ctx, address, buffer)
	return args.Error(0)
}

func (m *MockI2CBus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	args := m.Called(ctx, address, buffer)
	if data, ok := args.Get(0).([]byte); ok && len(data) <= len(buffer) {
		copy(buffer, data)
	}
	return args.Error(1)
}

func (m *MockI2CBus) Release(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func TestMap_Read(t *testing.T) {
	bus := new(MockI2CBus)
	m := New(bus, 0x54)
	ctx := context.Background()

	bus.On("WriteToAddr", mock.Anything, byte(0x54), []byte{0x10, 0x0C}).Return(nil).Once()
	bus.On("ReadFromAddr", mock.Anything, byte(0x54), mock.Anything).Return([]byte{0xAB}, nil).Once()

	val, err := m.Read(ctx, 0x100C)
	require.NoError(t, err)
	assert.Equal(t, byte(0xAB), val)
	bus.AssertExpectations(t)
}

func TestMap_ReadShortTransfer(t *testing.T) {
	bus := new(MockI2CBus)
	m := New(bus, 0x54)
	ctx := context.Background()

	bus.On("WriteToAddr", mock.Anything, byte(0x54), mock.Anything).Return(nil).Once()
	bus.On("ReadFromAddr", mock.Anything, byte(0x54), mock.Anything).
		Return(nil, mira.CheckTransfer("read", 1, 0)).Once()

	_, err := m.Read(ctx, 0x0000)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBusFault)
	assert.ErrorIs(t, err, mira.ErrShortTransfer)
}

func TestMap_WriteEncoding(t *testing.T) {
	tests := []struct {
		name     string
		opts     []Opt
		write    func(ctx context.Context, m *Map) error
		expected []byte
	}{
		{
			name:     "8-bit value 16-bit pointer",
			write:    func(ctx context.Context, m *Map) error { return m.Write(ctx, 0xE000, 0x01) },
			expected: []byte{0xE0, 0x00, 0x01},
		},
		{
			name:     "16-bit value low byte first",
			write:    func(ctx context.Context, m *Map) error { return m.Write16(ctx, 0x1012, 0x1234) },
			expected: []byte{0x10, 0x12, 0x34, 0x12},
		},
		{
			name:     "8-bit pointer",
			opts:     []Opt{WithAddrWidth8()},
			write:    func(ctx context.Context, m *Map) error { return m.Write(ctx, 0x62, 0x0D) },
			expected: []byte{0x62, 0x0D},
		},
		{
			name:     "8-bit pointer 16-bit value",
			opts:     []Opt{WithAddrWidth8()},
			write:    func(ctx context.Context, m *Map) error { return m.Write16(ctx, 0x20, 0xBEEF) },
			expected: []byte{0x20, 0xEF, 0xBE},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := bustest.NewRecorder()
			m := New(bus, 0x54, tt.opts...)
			require.NoError(t, tt.write(context.Background(), m))
			writes := bus.WritesTo(0x54)
			require.Len(t, writes, 1, "a register write must be a single transport call")
			assert.Equal(t, tt.expected, writes[0])
		})
	}
}

func TestMap_WriteError(t *testing.T) {
	bus := bustest.NewRecorder()
	bus.FailOnCall(1, errors.New("nack"))
	m := New(bus, 0x54)
	err := m.Write16(context.Background(), 0x1012, 1)
	assert.ErrorIs(t, err, ErrBusFault)
	assert.Empty(t, bus.WritesTo(0x54))
}

func TestMap_ApplyReplaysProgram(t *testing.T) {
	program := Program{{0xE000, 0x00}, {0x01E4, 0x00}, {0x01E5, 0x13}, {0xE000, 0x01}, {0x1012, 0x0B}}
	bus := bustest.NewRecorder()
	m := New(bus, 0x54)
	require.NoError(t, m.Apply(context.Background(), program))

	writes := bus.WritesTo(0x54)
	require.Len(t, writes, len(program))
	for i, op := range program {
		assert.Equal(t, []byte{byte(op.Addr >> 8), byte(op.Addr), op.Value}, writes[i], "op %d", i+1)
	}
}

func TestMap_ApplyAbortsAtFailingOp(t *testing.T) {
	program := make(Program, 10)
	for i := range program {
		program[i] = Op{Addr: Addr(0x2000 + i), Value: byte(i)}
	}
	for n := 1; n <= len(program); n++ {
		t.Run(fmt.Sprintf("fail at %d", n), func(t *testing.T) {
			bus := bustest.NewRecorder()
			bus.FailOnCall(n, errors.New("nack"))
			m := New(bus, 0x54)

			err := m.Apply(context.Background(), program)
			require.Error(t, err)
			var perr *ProgramError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, n, perr.Index)
			assert.Equal(t, program[n-1], perr.Op)
			assert.ErrorIs(t, err, ErrBusFault)
			assert.Len(t, bus.WritesTo(0x54), n-1)
			assert.Equal(t, n, bus.Calls(), "no write may follow the failing one")
		})
	}
}

func TestConcat(t *testing.T) {
	a := Program{{1, 1}}
	b := Program{{2, 2}, {3, 3}}
	res := Concat(a, b)
	assert.Equal(t, Program{{1, 1}, {2, 2}, {3, 3}}, res)
	res[0].Value = 9
	assert.Equal(t, byte(1), a[0].Value)
}
