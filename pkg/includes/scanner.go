package includes

import (
	"path"
	"strings"
)

// Kind classifies a scanned include directive
type Kind int

const (
	// ProjectInclude is the quoted form: #include "util.h"
	ProjectInclude Kind = iota
	// SystemInclude is the angle-bracket form: #include <vector>
	SystemInclude
	// Unparseable is a directive without a quoted or bracketed target,
	// e.g. #include MACRO_HEADER
	Unparseable
)

func (k Kind) String() string {
	switch k {
	case ProjectInclude:
		return "project"
	case SystemInclude:
		return "system"
	case Unparseable:
		return "unparseable"
	}
	return "unknown"
}

// Include is one include directive found in a file
type Include struct {
	Kind   Kind
	Target string // raw text between the delimiters, verbatim
	Line   int    // 1-based line number
}

// Base returns the final path component of the target
func (i Include) Base() string {
	return path.Base(strings.ReplaceAll(i.Target, `\`, "/"))
}

const directive = "include"

// ScanLine recognizes an include directive on a single line.
//
// Recognized forms, after leading whitespace:
//
//	#include "target"
//	#include <target>
//	# include "target"      (whitespace between '#' and the keyword)
//
// Anything after the closing delimiter is ignored. A line whose keyword is
// followed by something other than whitespace or a delimiter (#include_next,
// #includes) is not an include. ok is false for non-include lines.
func ScanLine(line string) (inc Include, ok bool) {
	rest := strings.TrimLeft(line, " \t")
	if !strings.HasPrefix(rest, "#") {
		return Include{}, false
	}
	rest = strings.TrimLeft(rest[1:], " \t")
	if !strings.HasPrefix(rest, directive) {
		return Include{}, false
	}
	rest = rest[len(directive):]
	if rest != "" && !strings.ContainsRune(" \t\"<", rune(rest[0])) {
		return Include{}, false
	}
	rest = strings.TrimLeft(rest, " \t")

	if rest == "" {
		return Include{Kind: Unparseable}, true
	}

	var closing byte
	kind := ProjectInclude
	switch rest[0] {
	case '"':
		closing = '"'
	case '<':
		closing = '>'
		kind = SystemInclude
	default:
		return Include{Kind: Unparseable, Target: strings.TrimSpace(rest)}, true
	}

	end := strings.IndexByte(rest[1:], closing)
	if end <= 0 {
		// Unterminated or empty target
		return Include{Kind: Unparseable, Target: strings.TrimSpace(rest)}, true
	}
	return Include{Kind: kind, Target: rest[1 : end+1]}, true
}
