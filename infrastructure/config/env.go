package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/joho/godotenv"

	domainconfig "github.com/felixgeelhaar/hoopstats/domain/config"
)

var (
	// ${VAR}, ${VAR:-default}, ${VAR:?message}
	bracedVar = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-[^}]*|:\?[^}]*)?\}`)
	// $VAR
	bareVar = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
)

// envExpander expands environment variables in configuration text.
type envExpander struct {
	strict  bool
	lookup  func(string) (string, bool)
	missing []string
}

func newEnvExpander(strict bool) *envExpander {
	return &envExpander{strict: strict, lookup: os.LookupEnv}
}

// Expand substitutes variables in input. Supported forms:
//   - ${VAR}: value of VAR, empty when unset
//   - ${VAR:-default}: value of VAR, or default when unset or empty
//   - ${VAR:?message}: value of VAR, error when unset or empty
//   - $VAR: value of VAR
//
// In strict mode an unset variable without a default is an error.
func (e *envExpander) Expand(input string) (string, error) {
	e.missing = nil

	out := bracedVar.ReplaceAllStringFunc(input, func(match string) string {
		sub := bracedVar.FindStringSubmatch(match)
		name, modifier := sub[1], sub[2]
		value, ok := e.lookup(name)

		switch {
		case strings.HasPrefix(modifier, ":-"):
			if !ok || value == "" {
				return modifier[2:]
			}
		case strings.HasPrefix(modifier, ":?"):
			if !ok || value == "" {
				e.missing = append(e.missing, fmt.Sprintf("%s: %s", name, modifier[2:]))
				return match
			}
		case !ok:
			e.unset(name)
			return ""
		}
		return value
	})

	out = bareVar.ReplaceAllStringFunc(out, func(match string) string {
		name := match[1:]
		value, ok := e.lookup(name)
		if !ok {
			e.unset(name)
			return ""
		}
		return value
	})

	if len(e.missing) > 0 {
		return "", fmt.Errorf("%w: %s", domainconfig.ErrMissingEnvVar, strings.Join(e.missing, ", "))
	}
	return out, nil
}

func (e *envExpander) unset(name string) {
	if e.strict {
		e.missing = append(e.missing, name)
	}
}

// ExpandEnv expands environment variables, leaving unset ones empty.
func ExpandEnv(input string) string {
	out, err := newEnvExpander(false).Expand(input)
	if err != nil {
		return input
	}
	return out
}

// ExpandEnvStrict expands environment variables and fails on unset ones.
func ExpandEnvStrict(input string) (string, error) {
	return newEnvExpander(true).Expand(input)
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment without overriding variables that are already set. Missing
// files are skipped. With no arguments it reads ".env".
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("%w: %s: %w", domainconfig.ErrEnvExpansionFailed, p, err)
		}
	}
	return nil
}
