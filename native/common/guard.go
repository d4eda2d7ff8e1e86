package common

import (
	"fmt"
	"strings"

	coreerrors "corndex/core/errors"
)

var ErrModulePaused = coreerrors.ErrModulePaused

type PauseView interface {
	IsPaused(module string) bool
}

func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return fmt.Errorf("%w: %s", ErrModulePaused, module)
	}
	return nil
}

// StaticPauses is a PauseView populated once from configuration.
type StaticPauses map[string]bool

// NewStaticPauses builds a pause set from module names; blank entries are
// ignored and names are case-insensitive.
func NewStaticPauses(modules []string) StaticPauses {
	out := StaticPauses{}
	for _, m := range modules {
		if name := strings.ToLower(strings.TrimSpace(m)); name != "" {
			out[name] = true
		}
	}
	return out
}

func (s StaticPauses) IsPaused(module string) bool {
	if s == nil {
		return false
	}
	return s[strings.ToLower(module)]
}
