package pathutils

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	tildeSymbolConstant = "~"
)

// HomeDirectoryProvider resolves the current user's home directory path.
type HomeDirectoryProvider func() (string, error)

// HomeExpander replaces a leading "~" in paths with the user's home directory.
// The home directory is resolved once, on first use.
type HomeExpander struct {
	homeDirectoryProvider HomeDirectoryProvider
	homeDirectory         string
	resolveOnce           sync.Once
}

// NewHomeExpander constructs a HomeExpander using the operating system lookup.
func NewHomeExpander() *HomeExpander {
	return NewHomeExpanderWithProvider(os.UserHomeDir)
}

// NewHomeExpanderWithProvider constructs a HomeExpander with a custom provider.
func NewHomeExpanderWithProvider(provider HomeDirectoryProvider) *HomeExpander {
	if provider == nil {
		provider = os.UserHomeDir
	}
	return &HomeExpander{homeDirectoryProvider: provider}
}

// Expand resolves "~" and "~/..." prefixes. Other paths, including "~user" forms, are returned unchanged,
// as is every path when the home directory cannot be determined.
func (expander *HomeExpander) Expand(candidatePath string) string {
	if expander == nil || !strings.HasPrefix(candidatePath, tildeSymbolConstant) {
		return candidatePath
	}

	remainder := strings.TrimPrefix(candidatePath, tildeSymbolConstant)
	if len(remainder) > 0 && remainder[0] != '/' && remainder[0] != os.PathSeparator {
		return candidatePath
	}

	homeDirectory := expander.resolveHomeDirectory()
	if len(homeDirectory) == 0 {
		return candidatePath
	}

	return filepath.Join(homeDirectory, remainder)
}

func (expander *HomeExpander) resolveHomeDirectory() string {
	expander.resolveOnce.Do(func() {
		homeDirectory, lookupError := expander.homeDirectoryProvider()
		if lookupError == nil {
			expander.homeDirectory = homeDirectory
		}
	})
	return expander.homeDirectory
}
