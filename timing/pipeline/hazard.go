package pipeline

// DataHazardPolicy selects how the pipeline resolves RAW data hazards.
type DataHazardPolicy uint8

const (
	// DataHazardStall never forwards; every RAW hazard, including
	// load-use, is resolved by stalling ID until the producer writes back.
	DataHazardStall DataHazardPolicy = iota
	// DataHazardForward forwards from EX/MEM and MEM/WB into EX. A
	// load-use hazard still costs one stall cycle, since the loaded value
	// isn't available until after MEM.
	DataHazardForward
)

// HazardUnit detects data hazards and decides forwarding/stalling actions
// according to the configured DataHazardPolicy.
type HazardUnit struct {
	policy DataHazardPolicy
}

// NewHazardUnit creates a hazard unit for the given policy.
func NewHazardUnit(policy DataHazardPolicy) *HazardUnit {
	return &HazardUnit{policy: policy}
}

// ForwardingSource indicates where an EX-stage operand should come from.
type ForwardingSource uint8

const (
	ForwardNone ForwardingSource = iota
	ForwardFromEXMEM
	ForwardFromMEMWB
)

// ForwardingResult carries forwarding decisions for both integer operands
// and all three possible float operands.
type ForwardingResult struct {
	ForwardRs1 ForwardingSource
	ForwardRs2 ForwardingSource

	ForwardFs1 ForwardingSource
	ForwardFs2 ForwardingSource
	ForwardFs3 ForwardingSource
}

// DetectForwarding finds RAW hazards between the instruction in ID/EX and
// the two instructions ahead of it in the pipeline. Under DataHazardStall
// this always returns ForwardNone; the load-use stall still applies since
// it is a structural, not a forwarding, resolution.
func (h *HazardUnit) DetectForwarding(idex *IDEXRegister, exmem *EXMEMRegister, memwb *MEMWBRegister) ForwardingResult {
	result := ForwardingResult{}
	if h.policy != DataHazardForward || !idex.Valid {
		return result
	}

	if idex.Rs1 != 0 {
		switch {
		case exmem.Valid && exmem.RegWrite && exmem.Rd == idex.Rs1:
			result.ForwardRs1 = ForwardFromEXMEM
		case memwb.Valid && memwb.RegWrite && memwb.Rd == idex.Rs1:
			result.ForwardRs1 = ForwardFromMEMWB
		}
	}

	if idex.Rs2 != 0 {
		switch {
		case exmem.Valid && exmem.RegWrite && exmem.Rd == idex.Rs2:
			result.ForwardRs2 = ForwardFromEXMEM
		case memwb.Valid && memwb.RegWrite && memwb.Rd == idex.Rs2:
			result.ForwardRs2 = ForwardFromMEMWB
		}
	}

	// The float register file has no hardwired-zero register, so f0 is
	// checked like any other destination rather than excluded the way
	// x0 is above.
	if idex.UsesFs1 {
		switch {
		case exmem.Valid && exmem.FRegWrite && exmem.Rd == idex.Rs1:
			result.ForwardFs1 = ForwardFromEXMEM
		case memwb.Valid && memwb.FRegWrite && memwb.Rd == idex.Rs1:
			result.ForwardFs1 = ForwardFromMEMWB
		}
	}
	if idex.UsesFs2 {
		switch {
		case exmem.Valid && exmem.FRegWrite && exmem.Rd == idex.Rs2:
			result.ForwardFs2 = ForwardFromEXMEM
		case memwb.Valid && memwb.FRegWrite && memwb.Rd == idex.Rs2:
			result.ForwardFs2 = ForwardFromMEMWB
		}
	}
	if idex.UsesFs3 {
		switch {
		case exmem.Valid && exmem.FRegWrite && exmem.Rd == idex.Rs3:
			result.ForwardFs3 = ForwardFromEXMEM
		case memwb.Valid && memwb.FRegWrite && memwb.Rd == idex.Rs3:
			result.ForwardFs3 = ForwardFromMEMWB
		}
	}

	return result
}

// GetForwardedValue resolves a ForwardingSource into the actual value to
// feed the ALU.
func (h *HazardUnit) GetForwardedValue(source ForwardingSource, original uint64, exmem *EXMEMRegister, memwb *MEMWBRegister) uint64 {
	switch source {
	case ForwardFromEXMEM:
		return exmem.Result.RegValue
	case ForwardFromMEMWB:
		if memwb.MemToReg {
			return memwb.MemData
		}
		return memwb.Result.RegValue
	default:
		return original
	}
}

// GetForwardedFloat is GetForwardedValue's float counterpart. A forwarded
// float load's value is already resolved by EX (see Executor.Compute's
// FLW/FLD cases), so unlike the integer MEM/WB path there's no separate
// memory-vs-ALU-result distinction to make here.
func (h *HazardUnit) GetForwardedFloat(source ForwardingSource, original uint64, exmem *EXMEMRegister, memwb *MEMWBRegister) uint64 {
	switch source {
	case ForwardFromEXMEM:
		return exmem.Result.FRegValue
	case ForwardFromMEMWB:
		return memwb.Result.FRegValue
	default:
		return original
	}
}

// DetectFloatLoadUseHazard is DetectLoadUseHazard's float-register-file
// counterpart. It has no rd-zero exclusion: f0 is an ordinary register, not
// hardwired to zero like x0.
func (h *HazardUnit) DetectFloatLoadUseHazard(loadRd uint8, usesFs1, usesFs2, usesFs3 bool, fs1, fs2, fs3 uint8) bool {
	if usesFs1 && fs1 == loadRd {
		return true
	}
	if usesFs2 && fs2 == loadRd {
		return true
	}
	if usesFs3 && fs3 == loadRd {
		return true
	}
	return false
}

// DetectFloatRAWHazard is DetectRAWHazard's float-register-file counterpart,
// checked under DataHazardStall.
func (h *HazardUnit) DetectFloatRAWHazard(idex *IDEXRegister, exmem *EXMEMRegister, usesFs1, usesFs2, usesFs3 bool, fs1, fs2, fs3 uint8) bool {
	if h.policy != DataHazardStall {
		return false
	}

	produces := func(valid, fRegWrite bool, rd uint8) bool {
		if !valid || !fRegWrite {
			return false
		}
		return (usesFs1 && fs1 == rd) || (usesFs2 && fs2 == rd) || (usesFs3 && fs3 == rd)
	}

	return produces(idex.Valid && !idex.Bubble, idex.FRegWrite, idex.Rd) ||
		produces(exmem.Valid && !exmem.Bubble, exmem.FRegWrite, exmem.Rd)
}

// DetectLoadUseHazard reports whether the load in ID/EX feeds either
// source operand of the instruction currently in IF/ID (already decoded
// by the caller, since IF/ID only holds the raw word). This is
// unavoidable under both policies: forwarding cannot supply a value MEM
// hasn't produced yet.
func (h *HazardUnit) DetectLoadUseHazard(loadRd uint8, usesRs1, usesRs2 bool, rs1, rs2 uint8) bool {
	if loadRd == 0 {
		return false
	}
	if usesRs1 && rs1 == loadRd {
		return true
	}
	if usesRs2 && rs2 == loadRd {
		return true
	}
	return false
}

// DetectRAWHazard reports whether, under DataHazardStall, the instruction
// entering ID reads a register that idex or exmem will still write back.
// Forwarding resolves these same producers under DataHazardForward, so
// this only ever fires under the stall policy; the memwb producer never
// needs checking here since Tick runs writeback before decode each cycle,
// so its value is already visible in the register file by the time
// ReadOperands runs.
func (h *HazardUnit) DetectRAWHazard(idex *IDEXRegister, exmem *EXMEMRegister, usesRs1, usesRs2 bool, rs1, rs2 uint8) bool {
	if h.policy != DataHazardStall {
		return false
	}

	produces := func(valid, regWrite bool, rd uint8) bool {
		if !valid || !regWrite || rd == 0 {
			return false
		}
		return (usesRs1 && rs1 == rd) || (usesRs2 && rs2 == rd)
	}

	return produces(idex.Valid && !idex.Bubble, idex.RegWrite, idex.Rd) ||
		produces(exmem.Valid && !exmem.Bubble, exmem.RegWrite, exmem.Rd)
}

// StallResult describes the stage actions a Tick must take this cycle.
type StallResult struct {
	StallIF        bool
	StallID        bool
	InsertBubbleEX bool
	FlushIF        bool
	FlushID        bool
}

// ComputeStalls combines the data-hazard and control-hazard conditions for
// a cycle into the stage actions the pipeline must perform.
func (h *HazardUnit) ComputeStalls(dataHazard, mispredicted, allStall bool) StallResult {
	result := StallResult{}

	if dataHazard {
		result.StallIF = true
		result.StallID = true
		result.InsertBubbleEX = true
	}

	if allStall {
		// all-stall control policy: every branch/jump blocks fetch of the
		// next instruction until it resolves in EX.
		result.StallIF = true
	}

	if mispredicted {
		result.FlushIF = true
		result.FlushID = true
	}

	return result
}
