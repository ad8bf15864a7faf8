package hw

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/moffa90/go-fsbl/bootimage"
	"github.com/moffa90/go-fsbl/status"
)

func newTestSequencer() (*Sequencer, *Map, *[]time.Duration) {
	m := NewMap()
	s := NewSequencer(m)
	s.Retries = 3
	var settles []time.Duration
	s.Settle = func(d time.Duration) { settles = append(settles, d) }
	return s, m, &settles
}

func TestReadModifyWrite(t *testing.T) {
	m := NewMap()
	m.Poke(0x100, 0xF0)

	Set(m, 0x100, 0x0F)
	if got := m.Peek(0x100); got != 0xFF {
		t.Errorf("after Set = 0x%X, want 0xFF", got)
	}
	Clear(m, 0x100, 0x81)
	if got := m.Peek(0x100); got != 0x7E {
		t.Errorf("after Clear = 0x%X, want 0x7E", got)
	}
	Update(m, 0x100, 0xF0, 0x35)
	if got := m.Peek(0x100); got != 0x3E {
		t.Errorf("after Update = 0x%X, want 0x3E", got)
	}
}

func TestMapHooks(t *testing.T) {
	m := NewMap()
	m.OnWrite(PMUGlobalCntrl, func(m *Map, val uint32) {
		if val&GlobalCntrlDontSleep != 0 {
			m.Poke(PMUGlobalCntrl, val|GlobalCntrlFWIsPresent)
		}
	})
	Set(m, PMUGlobalCntrl, GlobalCntrlDontSleep)
	if m.Read32(PMUGlobalCntrl)&GlobalCntrlFWIsPresent == 0 {
		t.Error("hook did not run")
	}
	if diff := cmp.Diff([]uint32{GlobalCntrlDontSleep}, m.Writes(PMUGlobalCntrl)); diff != "" {
		t.Errorf("writes mismatch (-want +got):\n%s", diff)
	}
}

func TestPowerUpIsland(t *testing.T) {
	m := NewMap()
	if err := PowerUpIsland(m, PwrR50, 3); err != nil {
		t.Fatalf("PowerUpIsland() error: %v", err)
	}
	if got := m.Writes(ReqPwrUpTrigger); len(got) != 1 || got[0] != PwrR50 {
		t.Errorf("trigger writes = %v", got)
	}

	m.Poke(ReqPwrUpStatus, PwrR50)
	if err := PowerUpIsland(m, PwrR50, 3); !errors.Is(err, errPowerPending) {
		t.Errorf("stuck request error = %v", err)
	}
	reads := 0
	for _, a := range m.Log() {
		if !a.Write && a.Addr == ReqPwrUpStatus {
			reads++
		}
	}
	// one successful poll above plus the initial try and three retries
	if reads != 5 {
		t.Errorf("status polled %d times, want 5", reads)
	}
}

func TestStartA53(t *testing.T) {
	tests := []struct {
		name    string
		core    bootimage.Core
		aarch32 bool
		high    bool
		check   func(t *testing.T, m *Map)
	}{
		{
			name: "64-bit core 1",
			core: bootimage.CoreA53_1,
			check: func(t *testing.T, m *Map) {
				if got := m.Peek(RVBARAddr0L + 8); got != 0x40000000 {
					t.Errorf("RVBAR1L = 0x%X", got)
				}
				if got := m.Peek(RVBARAddr0L + 12); got != 0x8 {
					t.Errorf("RVBAR1H = 0x%X", got)
				}
				if m.Peek(APUConfig0)&0x2 == 0 {
					t.Error("AArch64 bit not set")
				}
			},
		},
		{
			name:    "32-bit core 3 high vector",
			core:    bootimage.CoreA53_3,
			aarch32: true,
			high:    true,
			check: func(t *testing.T, m *Map) {
				if m.Peek(APUConfig0)&0x8 != 0 {
					t.Error("AArch64 bit set for 32-bit core")
				}
				if m.Peek(APUConfig0)&(1<<11) == 0 {
					t.Error("high vector bit not set")
				}
				if len(m.Writes(RVBARAddr0L+24)) != 0 {
					t.Error("RVBAR written for 32-bit core")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, m, _ := newTestSequencer()
			m.Poke(RstFPDAPU, 0xFFFFFFFF)

			if err := s.Start(tt.core, tt.aarch32, tt.high, 0x840000000); err != nil {
				t.Fatalf("Start() error: %v", err)
			}
			if got := s.State(tt.core); got != ResetReleased {
				t.Errorf("state = %v, want %v", got, ResetReleased)
			}

			x := tt.core.A53Index()
			wantMask := uint32(PwrACPU0<<x | PwrFP | PwrL2Bank0)
			if got := m.Writes(ReqPwrUpTrigger); len(got) != 1 || got[0] != wantMask {
				t.Errorf("power request = %v, want 0x%X", got, wantMask)
			}
			if m.Peek(ACPUCtrl)&(ACPUCtrlClkActFull|ACPUCtrlClkActHalf) == 0 {
				t.Error("clock not enabled")
			}
			released := uint32(1<<x | RstFPDAPUL2 | 1<<(RstFPDAPUPwronShift+x))
			if m.Peek(RstFPDAPU)&released != 0 {
				t.Errorf("reset bits still asserted: 0x%X", m.Peek(RstFPDAPU))
			}
			tt.check(t, m)
		})
	}
}

func TestStartR5Split(t *testing.T) {
	s, m, settles := newTestSequencer()
	m.Poke(RstLPDTop, RstLPDTopR5All)
	m.Poke(RPUGlblCntl, RPUGlblCntlTCMComb|RPUGlblCntlSLClamp)

	if err := s.Start(bootimage.CoreR5_1, true, true, 0); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	if got := m.Peek(RPUGlblCntl); got != RPUGlblCntlSLSplit {
		t.Errorf("GLBL_CNTL = 0x%X, want split only", got)
	}
	if got := m.Peek(RstLPDTop); got != RstLPDTopR50 {
		t.Errorf("RST_LPD_TOP = 0x%X, want r5-0 still in reset", got)
	}
	if got := m.Peek(RPU1Cfg); got != RPUCfgNCPUHalt|RPUCfgVInitHi {
		t.Errorf("RPU_1_CFG = 0x%X", got)
	}
	if got := m.Writes(RPU1Cfg); len(got) == 0 || got[0]&RPUCfgNCPUHalt != 0 {
		t.Errorf("core not halted before release: %v", got)
	}
	if len(m.Writes(RPU0Cfg)) != 0 {
		t.Error("r5-0 touched while starting r5-1")
	}
	if diff := cmp.Diff([]time.Duration{R5SettleDelay}, *settles); diff != "" {
		t.Errorf("settle delays mismatch (-want +got):\n%s", diff)
	}
}

func TestStartR5Lockstep(t *testing.T) {
	s, m, _ := newTestSequencer()
	m.Poke(RstLPDTop, RstLPDTopR5All)
	m.Poke(RPUGlblCntl, RPUGlblCntlSLSplit)

	if err := s.Start(bootimage.CoreR5Lockstep, true, false, 0); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if got := m.Peek(RPUGlblCntl); got != RPUGlblCntlTCMComb|RPUGlblCntlSLClamp {
		t.Errorf("GLBL_CNTL = 0x%X, want lockstep", got)
	}
	if got := m.Peek(RstLPDTop); got != 0 {
		t.Errorf("RST_LPD_TOP = 0x%X, want both released", got)
	}
	for _, cfg := range []uint32{RPU0Cfg, RPU1Cfg} {
		if m.Peek(cfg)&RPUCfgNCPUHalt == 0 {
			t.Errorf("cfg 0x%X still halted", cfg)
		}
	}
}

func TestPowerUpFailure(t *testing.T) {
	s, m, _ := newTestSequencer()
	m.Poke(ReqPwrUpStatus, 0xFFFFFFFF)

	err := s.Start(bootimage.CoreA53_2, false, false, 0)
	var pe *PowerUpError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want *PowerUpError", err)
	}
	if got := status.CodeOf(err); got != status.PowerUpA532 {
		t.Errorf("code = %v, want %v", got, status.PowerUpA532)
	}
	if s.State(bootimage.CoreA53_2) != Off {
		t.Error("core left the off state after a failed power up")
	}
	if len(m.Writes(ACPUCtrl)) != 0 {
		t.Error("clock enabled after a failed power up")
	}
}

func TestSequencerOrdering(t *testing.T) {
	s, _, _ := newTestSequencer()

	var oe *OrderError
	if err := s.EnableClockAndReleaseReset(bootimage.CoreA53_0); !errors.As(err, &oe) {
		t.Errorf("release before power up error = %v", err)
	}
	if err := s.PowerUp(bootimage.CoreA53_0); err != nil {
		t.Fatal(err)
	}
	if err := s.PowerUp(bootimage.CoreA53_0); !errors.As(err, &oe) {
		t.Errorf("second power up error = %v", err)
	}
	if err := s.EnableClockAndReleaseReset(bootimage.CoreA53_0); err != nil {
		t.Fatal(err)
	}
	if err := s.SetResetVector(bootimage.CoreA53_0, false, false, 0); !errors.As(err, &oe) {
		t.Errorf("vector after release error = %v", err)
	}
}

func TestSequencerRejectsPMU(t *testing.T) {
	s, _, _ := newTestSequencer()
	err := s.PowerUp(bootimage.CorePMU)
	if got := status.CodeOf(err); got != status.HandoffCoreID {
		t.Errorf("code = %v (%v), want %v", got, err, status.HandoffCoreID)
	}
}
