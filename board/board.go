// Package board describes a board in YAML and turns the description into
// boot options.
package board

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/moffa90/go-fsbl/boot"
	"github.com/moffa90/go-fsbl/bootimage"
	"github.com/moffa90/go-fsbl/device"
	"gopkg.in/yaml.v3"
)

// Digest names accepted in Config.Digest.
const (
	DigestSHA3 = "sha3"
	DigestNone = "none"
)

// Config is the YAML board description.
type Config struct {
	// Name identifies the board in logs
	Name string `yaml:"name"`

	// BootModes lists the boot modes the board has a storage driver for
	BootModes []string `yaml:"boot_modes"`

	// Memory overrides the default memory map when present
	Memory *bootimage.MemoryMap `yaml:"memory"`

	// AvailableCores restricts handoff. Empty means every core.
	AvailableCores []string `yaml:"available_cores"`

	// Digest is "sha3" (the default) or "none"
	Digest string `yaml:"digest"`

	DDRSelfRefresh bool   `yaml:"ddr_self_refresh"`
	DDRRetries     uint64 `yaml:"ddr_retries"`
	PowerRetries   uint64 `yaml:"power_retries"`

	// ScratchAddress and HandoffParamsAddress override the OCM defaults when non-zero
	ScratchAddress       uint64 `yaml:"scratch_address"`
	HandoffParamsAddress uint64 `yaml:"handoff_params_address"`

	RunningAArch32 bool `yaml:"running_aarch32"`
}

// Load reads and validates the board description at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read board config: %w", err)
	}
	return Parse(b)
}

// Parse decodes and validates a board description. Unknown fields are rejected.
func Parse(b []byte) (*Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	c := &Config{}
	if err := dec.Decode(c); err != nil {
		return nil, fmt.Errorf("decode board config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid board config: %w", err)
	}
	return c, nil
}

// Validate checks the description.
func (c Config) Validate() error {
	if len(c.BootModes) == 0 {
		return errors.New("missing field: boot_modes")
	}
	if _, err := c.Modes(); err != nil {
		return err
	}
	if _, err := c.Cores(); err != nil {
		return err
	}

	switch c.Digest {
	case "", DigestSHA3, DigestNone:
	default:
		return fmt.Errorf("unknown digest %q", c.Digest)
	}

	if c.Memory != nil {
		windows := []struct {
			name string
			w    bootimage.Window
		}{
			{"ps_ddr", c.Memory.PSDDR},
			{"ps_high_ddr", c.Memory.PSHighDDR},
			{"pl_ddr", c.Memory.PLDDR},
			{"ocm", c.Memory.OCM},
		}
		for _, w := range windows {
			if w.w.End < w.w.Start {
				return fmt.Errorf("memory window %s ends at 0x%X before its start 0x%X", w.name, w.w.End, w.w.Start)
			}
		}
	}

	if c.ScratchAddress%bootimage.WordSize != 0 {
		return fmt.Errorf("scratch_address 0x%X is not word aligned", c.ScratchAddress)
	}
	if c.HandoffParamsAddress%8 != 0 {
		return fmt.Errorf("handoff_params_address 0x%X is not 8-byte aligned", c.HandoffParamsAddress)
	}
	return nil
}

// Modes returns the parsed boot modes.
func (c Config) Modes() ([]device.BootMode, error) {
	modes := make([]device.BootMode, 0, len(c.BootModes))
	for _, s := range c.BootModes {
		m, err := device.ParseBootMode(s)
		if err != nil {
			return nil, err
		}
		if m == device.ModeJTAG {
			return nil, errors.New("jtag boot mode has no storage driver")
		}
		modes = append(modes, m)
	}
	return modes, nil
}

// Cores returns the parsed available cores.
func (c Config) Cores() ([]bootimage.Core, error) {
	cores := make([]bootimage.Core, 0, len(c.AvailableCores))
	for _, s := range c.AvailableCores {
		core, err := bootimage.ParseCore(s)
		if err != nil {
			return nil, err
		}
		cores = append(cores, core)
	}
	return cores, nil
}

// Options renders the description as boot options. storage is registered
// for every listed boot mode.
//
// Example:
//
//	cfg, err := board.Load("zcu102.yaml")
//	opts, err := cfg.Options(flash)
//	m := boot.New(regs, mem, cpu, opts...)
func (c Config) Options(storage device.Storage) ([]boot.Option, error) {
	if storage == nil {
		return nil, errors.New("storage cannot be nil")
	}
	modes, err := c.Modes()
	if err != nil {
		return nil, err
	}
	cores, err := c.Cores()
	if err != nil {
		return nil, err
	}

	var opts []boot.Option
	for _, m := range modes {
		opts = append(opts, boot.WithStorage(m, storage))
	}
	if c.Memory != nil {
		opts = append(opts, boot.WithMemoryMap(*c.Memory))
	}
	if len(cores) > 0 {
		opts = append(opts, boot.WithAvailableCores(cores...))
	}
	if c.Digest == DigestNone {
		opts = append(opts, boot.WithDigester(nil))
	}
	if c.DDRSelfRefresh {
		opts = append(opts, boot.WithDDRSelfRefresh(c.DDRRetries))
	}
	if c.PowerRetries > 0 {
		opts = append(opts, boot.WithPowerRetries(c.PowerRetries))
	}
	if c.ScratchAddress != 0 {
		opts = append(opts, boot.WithScratchAddress(c.ScratchAddress))
	}
	if c.HandoffParamsAddress != 0 {
		opts = append(opts, boot.WithHandoffParamsAddress(c.HandoffParamsAddress))
	}
	if c.RunningAArch32 {
		opts = append(opts, boot.WithRunningAArch32(true))
	}
	return opts, nil
}
