package vfs

import "strings"

// Options are render option bit flags.
type Options uint32

// Render option flags. The remaining bits are reserved.
const (
	// OptionDraft renders frames decimated by the draft scale.
	OptionDraft Options = 1 << 0
)

func (o Options) String() string {
	var parts []string
	if o&OptionDraft != 0 {
		parts = append(parts, "draft")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// scaleFromOptions effective downsampling factor.
func scaleFromOptions(options Options, draftScale int) int {
	if options&OptionDraft != 0 {
		return draftScale
	}
	return 1
}
