package filter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/exportkit/chatview/model"
)

// Options captures the message filtering configuration.
type Options struct {
	IncludeAuthor  []string
	IncludeContent []string
	ExcludeAuthor  []string
	ExcludeContent []string
}

// Filter holds compiled regex patterns for filtering messages before
// rendering. Include and exclude modes are mutually exclusive.
type Filter struct {
	includeMode    bool
	excludeMode    bool
	includeAuthor  []*regexp.Regexp
	includeContent []*regexp.Regexp
	excludeAuthor  []*regexp.Regexp
	excludeContent []*regexp.Regexp
}

// New creates a new Filter from the provided options.
func New(opts Options) (*Filter, error) {
	includeAuthor, err := compilePatterns(opts.IncludeAuthor)
	if err != nil {
		return nil, fmt.Errorf("compile include-author pattern: %w", err)
	}
	includeContent, err := compilePatterns(opts.IncludeContent)
	if err != nil {
		return nil, fmt.Errorf("compile include-content pattern: %w", err)
	}
	excludeAuthor, err := compilePatterns(opts.ExcludeAuthor)
	if err != nil {
		return nil, fmt.Errorf("compile exclude-author pattern: %w", err)
	}
	excludeContent, err := compilePatterns(opts.ExcludeContent)
	if err != nil {
		return nil, fmt.Errorf("compile exclude-content pattern: %w", err)
	}

	includeActive := len(includeAuthor) > 0 || len(includeContent) > 0
	excludeActive := len(excludeAuthor) > 0 || len(excludeContent) > 0
	if includeActive && excludeActive {
		return nil, fmt.Errorf("include and exclude filters are mutually exclusive")
	}

	return &Filter{
		includeMode:    includeActive,
		excludeMode:    excludeActive,
		includeAuthor:  includeAuthor,
		includeContent: includeContent,
		excludeAuthor:  excludeAuthor,
		excludeContent: excludeContent,
	}, nil
}

// Active reports whether any pattern is configured.
func (f *Filter) Active() bool {
	return f.includeMode || f.excludeMode
}

// Allows returns true if the message passes the filter criteria.
func (f *Filter) Allows(msg model.Message) bool {
	if f.includeMode {
		return matchAny(f.includeAuthor, msg.Author) || matchAny(f.includeContent, msg.Content)
	}

	if f.excludeMode {
		if matchAny(f.excludeAuthor, msg.Author) || matchAny(f.excludeContent, msg.Content) {
			return false
		}
	}

	return true
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("compile %q: %w", pattern, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

func matchAny(patterns []*regexp.Regexp, text string) bool {
	if len(patterns) == 0 {
		return false
	}
	for _, re := range patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
