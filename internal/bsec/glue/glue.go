// Package glue embeds the C integration shim compiled against the vendor
// BSEC sources.
//
// The shim is not part of the Bosch distribution; the build cache writes it
// into the vendor source tree before invoking the compiler. Embedding keeps
// the daemon a single self-contained binary - no loose source files need to
// ship alongside it.
//
// Importing this package (typically as a blank import from main) registers
// the shim with the bsec package.
package glue

import (
	_ "embed"

	"github.com/graysense/bsec-conduit/internal/bsec"
)

// source is the C integration shim. It reads the BME680 over /dev/i2c-1,
// feeds the BSEC fusion loop, and prints one JSON object per measurement on
// stdout.
//
//go:embed bsec-conduit.c
var source []byte

func init() {
	// Register the embedded shim with the build cache. The file name must
	// match the state/config names hardcoded inside the shim itself.
	bsec.GlueSource = source
	bsec.GlueFileName = "bsec-conduit.c"
}
