package bsec

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// Variant identifies one of the vendor's prebuilt BSEC library trees.
type Variant struct {
	// Name is a human-readable label used in logs.
	Name string

	// LibDir is the library directory relative to the vendor source root,
	// holding both the headers and libalgobsec.a for this target.
	LibDir string
}

// The closed set of supported library variants. The vendor ships only two
// binary trees for Raspberry Pi class hardware; the 32-bit ARMv7 and ARMv6
// variants therefore link against the same PiZero tree.
var (
	VariantARMv8 = Variant{
		Name:   "ARMv8 64-bit",
		LibDir: "algo/bin/Normal_version/RaspberryPI/PiThree_ArmV8-a-64bits",
	}
	VariantARMv7 = Variant{
		Name:   "ARMv7 32-bit",
		LibDir: "algo/bin/Normal_version/RaspberryPI/PiZero_ArmV6-32bits",
	}
	VariantARMv6 = Variant{
		Name:   "ARMv6 32-bit",
		LibDir: "algo/bin/Normal_version/RaspberryPI/PiZero_ArmV6-32bits",
	}
)

// chipVariants maps a Broadcom SoC family (decoded from the Raspberry Pi
// board revision) to its library variant.
var chipVariants = map[string]Variant{
	"BCM2835": VariantARMv6,
	"BCM2836": VariantARMv7,
	"BCM2837": VariantARMv8,
}

// machineVariants is the fallback decision table for non-Pi ARM boards,
// matched by prefix against the raw uname machine string in order. Anything
// that is not ARMv8 is assumed to be a 32-bit platform.
var machineVariants = []struct {
	prefix  string
	variant Variant
}{
	{"armv8", VariantARMv8},
	{"aarch64", VariantARMv8},
	{"arm", VariantARMv6},
}

// BoardRevision is an optional Raspberry Pi board revision code.
type BoardRevision struct {
	Code  uint32
	Known bool
}

// Chip decodes the revision code to a Broadcom SoC family name, or "" if
// the code does not decode to a known family.
//
// New-style codes (bit 23 set) carry the processor in bits 12-15; old-style
// codes all describe BCM2835 boards.
func (r BoardRevision) Chip() string {
	if !r.Known {
		return ""
	}
	if r.Code>>23&0x1 == 0 {
		return "BCM2835"
	}
	switch r.Code >> 12 & 0xF {
	case 0:
		return "BCM2835"
	case 1:
		return "BCM2836"
	case 2:
		return "BCM2837"
	default:
		return ""
	}
}

// ResolveVariant maps a host platform identity to a library variant. It is a
// total pure function: same inputs, same answer, no I/O.
//
// Decision order:
//  1. Non-Linux OS is fatal.
//  2. A machine string without "arm"/"aarch64" is fatal.
//  3. A board revision decoding to a known SoC family picks the variant
//     precisely.
//  4. Otherwise the variant is inferred from the machine string prefix;
//     "armv8"/"aarch64" selects the 64-bit tree, any other ARM the 32-bit
//     tree.
//  5. Anything left is an unknown architecture, fatal.
func ResolveVariant(goos, machine string, rev BoardRevision) (Variant, error) {
	if goos != "linux" {
		return Variant{}, fmt.Errorf("%w: requires Linux, got %q", ErrUnsupportedPlatform, goos)
	}
	if !strings.Contains(machine, "arm") && !strings.Contains(machine, "aarch64") {
		return Variant{}, fmt.Errorf("%w: requires an ARM processor, got %q", ErrUnsupportedPlatform, machine)
	}

	if chip := rev.Chip(); chip != "" {
		return chipVariants[chip], nil
	}

	for _, row := range machineVariants {
		if strings.HasPrefix(machine, row.prefix) {
			return row.variant, nil
		}
	}

	return Variant{}, fmt.Errorf("%w: unknown architecture %q", ErrUnsupportedPlatform, machine)
}

// BoardRevisionPath is where the kernel exposes the board revision line on a
// Raspberry Pi.
const BoardRevisionPath = "/proc/cpuinfo"

// ReadBoardRevision parses the "Revision" line from a Raspberry Pi style
// cpuinfo file (normally /proc/cpuinfo). A missing file or absent Revision
// line is not an error; it just means the host is not a Pi.
func ReadBoardRevision(path string) BoardRevision {
	data, err := os.ReadFile(path)
	if err != nil {
		return BoardRevision{}
	}

	for _, line := range strings.Split(string(data), "\n") {
		if !strings.HasPrefix(line, "Revision") {
			continue
		}
		_, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		// Overvolted boards prefix the code with extra digits; the low 32
		// bits carry the fields we decode.
		code, err := strconv.ParseUint(strings.TrimSpace(value), 16, 64)
		if err != nil {
			continue
		}
		return BoardRevision{Code: uint32(code), Known: true}
	}

	return BoardRevision{}
}

// HostMachine returns the kernel's machine string (what uname -m prints),
// e.g. "armv7l" or "aarch64".
func HostMachine() (string, error) {
	var uts syscall.Utsname
	if err := syscall.Uname(&uts); err != nil {
		return "", fmt.Errorf("reading uname: %w", err)
	}

	buf := make([]byte, 0, len(uts.Machine))
	for _, c := range uts.Machine {
		if c == 0 {
			break
		}
		buf = append(buf, byte(c))
	}
	return string(buf), nil
}
