package adapter

import (
	"context"
	"fmt"
)

// GPIOSupply is a module supply switched by one of the adapter GPIO lines.
// It satisfies power.Regulator.
type GPIOSupply struct {
	name      string
	adapter   *MCP2221
	pin       int
	activeLow bool
}

func NewGPIOSupply(name string, adapter *MCP2221, pin int, activeLow bool) *GPIOSupply {
	return &GPIOSupply{name: name, adapter: adapter, pin: pin, activeLow: activeLow}
}

func (s *GPIOSupply) Name() string {
	return s.name
}

func (s *GPIOSupply) Enable(ctx context.Context) error {
	if err := s.adapter.SetGPIO(ctx, s.pin, !s.activeLow); err != nil {
		return fmt.Errorf("could not enable %s on GP%d: %w", s.name, s.pin, err)
	}
	return nil
}

func (s *GPIOSupply) Disable(ctx context.Context) error {
	if err := s.adapter.SetGPIO(ctx, s.pin, s.activeLow); err != nil {
		return fmt.Errorf("could not disable %s on GP%d: %w", s.name, s.pin, err)
	}
	return nil
}
