package flow

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/aretw0/flowdeck/pkg/domain"
)

var (
	placeholderPattern = regexp.MustCompile(`\{(\w+)\}`)
	bracePattern       = regexp.MustCompile(`[{}]`)
)

// FormatPrompt substitutes every {token} placeholder in format with the
// value the token map points at, read from state via dotted-path lookup.
// Braces inside substituted values are doubled so they cannot be mistaken
// for further placeholders. An unmapped placeholder or a path resolving
// to nothing is an error.
func FormatPrompt(format string, tokenMap map[string]string, state *domain.State) (string, error) {
	unreplaced := make(map[string]bool)
	for _, match := range placeholderPattern.FindAllStringSubmatch(format, -1) {
		unreplaced[match[1]] = true
	}

	var lookupErr error
	result := placeholderPattern.ReplaceAllStringFunc(format, func(placeholder string) string {
		token := placeholder[1 : len(placeholder)-1]
		path, mapped := tokenMap[token]
		if !mapped {
			return placeholder
		}
		value, ok := state.Lookup(path)
		if !ok || value == nil {
			if lookupErr == nil {
				lookupErr = fmt.Errorf("could not find %s", path)
			}
			return placeholder
		}
		delete(unreplaced, token)
		return bracePattern.ReplaceAllString(fmt.Sprintf("%v", value), "$0$0")
	})
	if lookupErr != nil {
		return "", lookupErr
	}

	if len(unreplaced) > 0 {
		tokens := make([]string, 0, len(unreplaced))
		for token := range unreplaced {
			tokens = append(tokens, token)
		}
		sort.Strings(tokens)
		return "", fmt.Errorf("the following tokens were not replaced: %s", strings.Join(tokens, ", "))
	}
	return result, nil
}

var wordPattern = regexp.MustCompile(`\w+`)

// EstimateTokens approximates the model token count of text from its
// word count.
func EstimateTokens(text string) int {
	words := wordPattern.FindAllString(strings.ToLower(text), -1)
	return int(float64(len(words)) * 1.3)
}
