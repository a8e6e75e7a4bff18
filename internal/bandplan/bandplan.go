// Package bandplan supplies default receive passbands per modulation mode,
// loaded once from an embedded YAML asset instead of a Go literal so it can
// be swapped without a rebuild.
package bandplan

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed bandplan.yaml
var bandPlanYAML []byte

// Entry is one mode's default cut pair, in Hz relative to the tuned
// frequency.
type Entry struct {
	Mode      string `yaml:"mode"`
	LowCutHz  int32  `yaml:"low_cut_hz"`
	HighCutHz int32  `yaml:"high_cut_hz"`
}

type bandPlanFile struct {
	Entries []Entry `yaml:"entries"`
}

var defaults map[string]Entry

func init() {
	var file bandPlanFile
	if err := yaml.Unmarshal(bandPlanYAML, &file); err != nil {
		panic(fmt.Sprintf("bandplan: embedded asset is invalid: %v", err))
	}
	defaults = make(map[string]Entry, len(file.Entries))
	for _, e := range file.Entries {
		defaults[e.Mode] = e
	}
}

// Default returns the default cut pair for a mode name (as it appears in
// station configuration, e.g. "usb", "lsb", "fm"). AM is intentionally
// absent: AM stations always carry an explicit bandwidth in config.
func Default(mode string) (lowCutHz, highCutHz int32, ok bool) {
	e, ok := defaults[mode]
	if !ok {
		return 0, 0, false
	}
	return e.LowCutHz, e.HighCutHz, true
}
