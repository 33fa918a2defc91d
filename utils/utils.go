package utils

import (
	"errors"
	"os"
	"regexp"
	"strings"
)

var (
	ErrInvalidFilename = errors.New("invalid filename")

	filenameRegex = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
	safeWordRegex = regexp.MustCompile(`^[A-Za-z0-9_./=:@%+-]+$`)
)

// ValidateFilename rejects names that could escape the workspace or be
// interpreted by a shell.
func ValidateFilename(name string) error {
	if name == "" || name == "." || name == ".." || !filenameRegex.MatchString(name) {
		return ErrInvalidFilename
	}
	return nil
}

// ShellQuote quotes a single word for POSIX shells.
func ShellQuote(word string) string {
	if word == "" {
		return "''"
	}
	if safeWordRegex.MatchString(word) {
		return word
	}
	return "'" + strings.ReplaceAll(word, "'", `'"'"'`) + "'"
}

// ShellQuoteSlice quotes every word and joins them with spaces.
func ShellQuoteSlice(words []string) string {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = ShellQuote(w)
	}
	return strings.Join(quoted, " ")
}

// attempts to remove dir and optionaly its content. Can ignore error, for example if folder does not exist.
func RemoveIO(dir string, recursive, ignoreError bool) error {
	var err error
	if recursive {
		err = os.RemoveAll(dir)
	} else {
		err = os.Remove(dir)
	}

	if ignoreError {
		return nil
	}
	return err
}
