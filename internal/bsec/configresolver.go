package bsec

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// configIdentity describes one known-good vendor configuration blob.
type configIdentity struct {
	ConfigString string
	Voltage      float64
	SampleRate   int
	RetainState  int
}

// knownConfigHashes maps the MD5 digest of each vendor-shipped generic
// configuration blob to its identity. An existing destination file whose
// hash appears here is trusted and reused when the identity matches.
//
// Correctness relies on treating hash collision as practically impossible.
// That is a trust boundary, not a cryptographic guarantee: MD5 is fine for
// recognising eight fixed vendor files, nothing more.
var knownConfigHashes = map[string]configIdentity{
	"305c5398b0359f7956584a7a52bb48ea": {"generic_18v_300s_28d", 1.8, 300, 28},
	"eecd6e4000afa21901bb28e182a75c6e": {"generic_18v_300s_4d", 1.8, 300, 4},
	"19389190311bbdbf3432791eb9a258b7": {"generic_18v_3s_28d", 1.8, 3, 28},
	"0505f6120e216f19987b59dc011fc609": {"generic_18v_3s_4d", 1.8, 3, 4},
	"344ff63b9f11c0427d7d205242ffd606": {"generic_33v_300s_28d", 3.3, 300, 28},
	"16851fcb6becb9b814263deb3d31623b": {"generic_33v_300s_4d", 3.3, 300, 4},
	"a401d7712179350a7b6ff6fc035d49c2": {"generic_33v_3s_28d", 3.3, 3, 28},
	"1107f7ce9fcb414de64e899babc1a1ee": {"generic_33v_3s_4d", 3.3, 3, 4},
}

// vendorConfigName is the blob file name inside each variant directory of
// the vendor source tree.
const vendorConfigName = "bsec_iaq.config"

// configFileMode is the permission mode for installed configuration blobs.
const configFileMode = 0644

// ConfigResolver guarantees the runtime configuration blob in the working
// directory matches a requested identity, reusing a recognised existing file
// rather than overwriting operator-managed state.
//
// A present-but-unrecognised file is unconditionally overwritten. Whether
// that is the right call is debatable (the file could be a deliberate custom
// calibration), but it matches the established behaviour operators rely on.
type ConfigResolver struct {
	baseDir string
	srcDir  string
	logger  Logger
}

// NewConfigResolver creates a resolver rooted at the working directory
// (baseDir) and the vendor source tree (srcDir).
func NewConfigResolver(baseDir, srcDir string) *ConfigResolver {
	return &ConfigResolver{
		baseDir: baseDir,
		srcDir:  srcDir,
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the resolver.
func (r *ConfigResolver) SetLogger(logger Logger) {
	r.logger = logger
}

// Ensure returns the path of a configuration blob whose identity equals the
// device's ConfigString, copying the matching vendor variant over the
// destination unless the existing file already matches.
func (r *ConfigResolver) Ensure(device DeviceConfig) (string, error) {
	identity := device.ConfigString()
	dstPath := filepath.Join(r.baseDir, ConfigFileName)

	if hash, err := hashFile(dstPath); err == nil {
		if known, ok := knownConfigHashes[hash]; ok && known.ConfigString == identity {
			r.logger.Info("using existing runtime configuration", "identity", identity, "path", dstPath)
			return dstPath, nil
		}
	}

	srcPath := filepath.Join(r.srcDir, "config", identity, vendorConfigName)
	if err := copyFile(srcPath, dstPath); err != nil {
		r.logger.Error("installing runtime configuration failed",
			"identity", identity,
			"source", srcPath,
			"error", err,
		)
		return "", fmt.Errorf("%w: %v", ErrConfigCopy, err)
	}

	r.logger.Info("installed runtime configuration", "identity", identity, "path", dstPath)
	return dstPath, nil
}

// copyFile copies src over dst, truncating any existing destination.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, configFileMode)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
