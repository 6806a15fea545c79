package build

import (
	"fmt"

	"github.com/inful/mdfp"

	"git.home.luguber.info/inful/texbuilder/internal/config"
)

// Fingerprint identifies a rendering: the engine settings that shape the
// output plus the generated source. Changing either forces a rebuild.
func Fingerprint(engine config.EngineConfig, postProcess string, source []byte) string {
	settings := fmt.Sprintf("command: %s\npasses: %d\nexec_mode: %s\npost_process: %s\n",
		engine.Command, engine.Passes, engine.ExecMode, postProcess)
	return mdfp.CalculateFingerprintFromParts(settings, string(source))
}
