package secrets

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

const (
	sourceSeparatorConstant                    = ":"
	environmentSourceTypeValueConstant         = "env"
	fileSourceTypeValueConstant                = "file"
	promptSourceTypeValueConstant              = "prompt"
	defaultPromptLabelConstant                 = "Password"
	promptSecretEmptyErrorMessageConstant      = "no secret entered at prompt"
	promptReadErrorTemplateConstant            = "unable to read secret from prompt: %w"
	sourceMissingErrorMessageConstant          = "secret source must be provided"
	environmentNameMissingErrorMessageConstant = "environment variable name must be provided"
	filePathMissingErrorMessageConstant        = "secret file path must be provided"
	environmentSecretMissingTemplateConstant   = "environment variable %s is not set"
	fileReadErrorTemplateConstant              = "unable to read secret file %s: %w"
	fileSecretEmptyErrorTemplateConstant       = "secret file %s is empty"
	unsupportedSourceTemplateConstant          = "unsupported secret source type %q"
	lineFeedConstant                           = "\n"
	carriageReturnConstant                     = "\r"
)

// SourceType enumerates the supported secret retrieval mechanisms.
type SourceType string

// Secret source type enumerations.
const (
	SourceTypeEnvironment SourceType = SourceType(environmentSourceTypeValueConstant)
	SourceTypeFile        SourceType = SourceType(fileSourceTypeValueConstant)
	SourceTypePrompt      SourceType = SourceType(promptSourceTypeValueConstant)
)

// ErrSourceMissing indicates an empty source declaration.
var ErrSourceMissing = errors.New(sourceMissingErrorMessageConstant)

// Source specifies where a secret lives.
type Source struct {
	Type      SourceType
	Reference string
}

// EnvironmentLookup obtains an environment variable value.
type EnvironmentLookup func(key string) (string, bool)

// FileReader reads the contents of a file path.
type FileReader func(path string) ([]byte, error)

// Prompter asks the operator for a secret, displaying label.
type Prompter func(label string) (string, error)

// Resolver reads secrets from their declared sources.
type Resolver struct {
	environmentLookup EnvironmentLookup
	fileReader        FileReader
	prompter          Prompter
}

// NewResolver creates a resolver. Nil dependencies fall back to the process environment and file system.
func NewResolver(environmentLookup EnvironmentLookup, fileReader FileReader) *Resolver {
	if environmentLookup == nil {
		environmentLookup = os.LookupEnv
	}
	if fileReader == nil {
		fileReader = os.ReadFile
	}
	return &Resolver{environmentLookup: environmentLookup, fileReader: fileReader, prompter: NewTerminalPrompter(nil, nil)}
}

// WithPrompter replaces the prompter used for "prompt:" sources.
func (resolver *Resolver) WithPrompter(prompter Prompter) *Resolver {
	if prompter != nil {
		resolver.prompter = prompter
	}
	return resolver
}

// ParseSource interprets declarations of the form "env:NAME", "file:PATH", "prompt:LABEL",
// or a bare environment variable name.
func ParseSource(declaration string) (Source, error) {
	trimmedDeclaration := strings.TrimSpace(declaration)
	if len(trimmedDeclaration) == 0 {
		return Source{}, ErrSourceMissing
	}

	components := strings.SplitN(trimmedDeclaration, sourceSeparatorConstant, 2)
	if len(components) == 1 {
		return Source{Type: SourceTypeEnvironment, Reference: trimmedDeclaration}, nil
	}

	sourceType := strings.ToLower(strings.TrimSpace(components[0]))
	reference := strings.TrimSpace(components[1])

	switch SourceType(sourceType) {
	case SourceTypeEnvironment:
		if len(reference) == 0 {
			return Source{}, errors.New(environmentNameMissingErrorMessageConstant)
		}
		return Source{Type: SourceTypeEnvironment, Reference: reference}, nil
	case SourceTypeFile:
		if len(reference) == 0 {
			return Source{}, errors.New(filePathMissingErrorMessageConstant)
		}
		return Source{Type: SourceTypeFile, Reference: reference}, nil
	case SourceTypePrompt:
		if len(reference) == 0 {
			reference = defaultPromptLabelConstant
		}
		return Source{Type: SourceTypePrompt, Reference: reference}, nil
	default:
		return Source{}, fmt.Errorf(unsupportedSourceTemplateConstant, sourceType)
	}
}

// Resolve returns the secret value held by source. Environment values are returned verbatim;
// file contents lose only their final line terminator. Whitespace-only secrets are rejected.
func (resolver *Resolver) Resolve(source Source) (string, error) {
	switch source.Type {
	case SourceTypeEnvironment:
		value, found := resolver.environmentLookup(source.Reference)
		if !found || isBlank(value) {
			return "", fmt.Errorf(environmentSecretMissingTemplateConstant, source.Reference)
		}
		return value, nil
	case SourceTypeFile:
		contents, readError := resolver.fileReader(source.Reference)
		if readError != nil {
			return "", fmt.Errorf(fileReadErrorTemplateConstant, source.Reference, readError)
		}
		value := trimLineTerminator(string(contents))
		if isBlank(value) {
			return "", fmt.Errorf(fileSecretEmptyErrorTemplateConstant, source.Reference)
		}
		return value, nil
	case SourceTypePrompt:
		value, promptError := resolver.prompter(source.Reference)
		if promptError != nil {
			return "", fmt.Errorf(promptReadErrorTemplateConstant, promptError)
		}
		if len(value) == 0 {
			return "", errors.New(promptSecretEmptyErrorMessageConstant)
		}
		return value, nil
	default:
		return "", fmt.Errorf(unsupportedSourceTemplateConstant, source.Type)
	}
}

func trimLineTerminator(value string) string {
	value = strings.TrimSuffix(value, lineFeedConstant)
	return strings.TrimSuffix(value, carriageReturnConstant)
}

func isBlank(value string) bool {
	return len(strings.TrimSpace(value)) == 0
}

// ResolveDeclaration parses declaration and resolves the secret it names.
func (resolver *Resolver) ResolveDeclaration(declaration string) (string, error) {
	source, parseError := ParseSource(declaration)
	if parseError != nil {
		return "", parseError
	}
	return resolver.Resolve(source)
}
