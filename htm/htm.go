//go:build !htm_experimental

package htm

// fallbackOps is the default backend: it never attempts a hardware
// transaction. Building without htm_experimental gets this unconditionally,
// so Run is always a plain function call plus the bookkeeping in this file.
type fallbackOps struct{}

func (fallbackOps) cpuSupport() bool { return false }
func (fallbackOps) begin() BeginCode { return NotStarted }
func (fallbackOps) commit()         {}

var backend ops = fallbackOps{}
