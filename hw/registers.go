package hw

// PMU global registers.
const (
	PMUGlobalCntrl = 0xFFD80000

	// GlobalCntrlDontSleep wakes the PMU processor
	GlobalCntrlDontSleep = 0x1

	// GlobalCntrlFWIsPresent is raised by the PMU firmware once it is running
	GlobalCntrlFWIsPresent = 0x10

	// GenStorage4 holds the APU reset flag and the R5 usage bits
	GenStorage4 = 0xFFD80040

	// GenStorage5 holds the loader processor type and execution state
	GenStorage5 = 0xFFD80044

	// GenStorage6 publishes the handoff parameter block address
	GenStorage6 = 0xFFD80048

	// ErrorStatus is the loader status register read by the monitor
	ErrorStatus = 0xFFD80060

	// DDRStatus carries the DDR self-refresh handshake with the PMU firmware
	DDRStatus = 0xFFD8006C

	PwrState        = 0xFFD80100
	ReqPwrUpStatus  = 0xFFD80110
	ReqPwrUpIntEn   = 0xFFD80118
	ReqPwrUpTrigger = 0xFFD80120
)

// General storage fields.
const (
	// APUResetMask marks an APU-only restart in GenStorage4
	APUResetMask = 0x10000

	// R50Usage and R51Usage mark the R5 cores usable in GenStorage4
	R50Usage = 0x1
	R51Usage = 0x2

	// ExecCompleted is set in GenStorage5 when the loader exits
	ExecCompleted = 0x1

	// ProcTypeMask and ProcTypeShift locate the running processor in GenStorage5
	ProcTypeMask  = 0x6
	ProcTypeShift = 1

	// DDRSelfRefresh is set while DDR is in self-refresh
	DDRSelfRefresh = 0x1

	// DDRCInit tells the PMU the DDR controller is initialized
	DDRCInit = 0x2
)

// Power island request bits.
const (
	PwrACPU0   = 0x1
	PwrACPU1   = 0x2
	PwrACPU2   = 0x4
	PwrACPU3   = 0x8
	PwrR50     = 0x400
	PwrR51     = 0x800
	PwrL2Bank0 = 0x1000
	PwrTCM0A   = 0x10000
	PwrTCM0B   = 0x20000
	PwrTCM1A   = 0x40000
	PwrTCM1B   = 0x80000
	PwrFP      = 0x400000
	PwrPL      = 0x800000
)

// CSU registers.
const (
	CSUMultiBoot = 0xFFCA0010
	CSUAESReset  = 0xFFCA1010
	CSUSHAReset  = 0xFFCA2004
	CSUPCAPProg  = 0xFFCA3000

	// ResetAsserted holds a crypto engine in reset
	ResetAsserted = 0x1

	// PCAPProgEnable releases PROG_B to the fabric
	PCAPProgEnable = 0x1
)

// CRL_APB registers.
const (
	CPUR5Ctrl = 0xFF5E0090

	// CPUR5CtrlClkAct enables the R5 clock
	CPUR5CtrlClkAct = 0x1000000

	BootModeUser = 0xFF5E0200

	// BootModeMask selects the boot mode pins
	BootModeMask = 0xF

	ResetCtrl = 0xFF5E0218

	// ResetCtrlSoftReset triggers a system reset
	ResetCtrlSoftReset = 0x10

	ResetReason = 0xFF5E0220

	// ResetReasonPSOnly is a sticky bit left by a PS-only reset
	ResetReasonPSOnly = 0x20

	RstLPDTop = 0xFF5E023C

	RstLPDTopR50   = 0x1
	RstLPDTopR51   = 0x2
	RstLPDTopAMBA  = 0x4
	RstLPDTopR5All = RstLPDTopR50 | RstLPDTopR51 | RstLPDTopAMBA
)

// CRF_APB registers.
const (
	ACPUCtrl = 0xFD1A0060

	ACPUCtrlClkActFull = 0x1000000
	ACPUCtrlClkActHalf = 0x2000000

	RstFPDAPU = 0xFD1A0104

	// RstFPDAPUL2 is the shared L2 reset
	RstFPDAPUL2 = 0x100

	// RstFPDAPUPwronShift locates the per-core power-on reset bits
	RstFPDAPUPwronShift = 10
)

// APU registers.
const (
	APUConfig0 = 0xFD5C0020

	// APUConfig0VInitHiShift locates the per-core high vector bits
	APUConfig0VInitHiShift = 8

	// RVBARAddr0L is the low word of core 0's 64-bit reset address. Each core
	// has a low and a high word, cores are eight bytes apart.
	RVBARAddr0L = 0xFD5C0040
)

// RPU registers.
const (
	RPUGlblCntl = 0xFF9A0000

	RPUGlblCntlSLSplit = 0x8
	RPUGlblCntlSLClamp = 0x10
	RPUGlblCntlTCMComb = 0x40

	RPU0Cfg = 0xFF9A0100
	RPU1Cfg = 0xFF9A0200

	RPUCfgNCPUHalt = 0x1
	RPUCfgVInitHi  = 0x4
)

// GIC distributor pending clear registers.
const (
	GICDICPendR0 = 0xF9010280

	// GICDICPendRCount is the number of pending clear words for the SPI range
	GICDICPendRCount = 6
)
