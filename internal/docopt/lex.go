package docopt

import (
	"strings"
)

type lexTokKind int

const (
	lexWord lexTokKind = iota
	lexLBracket
	lexRBracket
	lexLParen
	lexRParen
	lexPipe
	lexEllipsis
	lexDoubleDash
)

type lexTok struct {
	kind lexTokKind
	text string
}

// lexUsageLine splits one usage pattern line (with the program name already
// stripped) into tokens: words, `[`/`]`, `(`/`)`, `|`, `...`, and the bare
// `--` anchor.
func lexUsageLine(line string) []lexTok {
	var toks []lexTok
	i := 0
	for i < len(line) {
		c := line[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '[':
			toks = append(toks, lexTok{lexLBracket, "["})
			i++
		case c == ']':
			toks = append(toks, lexTok{lexRBracket, "]"})
			i++
		case c == '(':
			toks = append(toks, lexTok{lexLParen, "("})
			i++
		case c == ')':
			toks = append(toks, lexTok{lexRParen, ")"})
			i++
		case c == '|':
			toks = append(toks, lexTok{lexPipe, "|"})
			i++
		case strings.HasPrefix(line[i:], "..."):
			toks = append(toks, lexTok{lexEllipsis, "..."})
			i += 3
		case strings.HasPrefix(line[i:], "--") && (i+2 == len(line) || line[i+2] == ' '):
			toks = append(toks, lexTok{lexDoubleDash, "--"})
			i += 2
		default:
			start := i
			for i < len(line) && !strings.ContainsRune(" \t[]()|", rune(line[i])) {
				i++
			}
			toks = append(toks, lexTok{lexWord, line[start:i]})
		}
	}
	return toks
}

// splitUsageSection extracts the lines that belong to the Usage: block of a
// doc block, stripping the "usage:" header and the leading program name
// from each continuation line.
func splitUsageSection(doc string) []string {
	lines := strings.Split(doc, "\n")
	var usageLines []string
	inUsage := false
	var progName string
	for _, raw := range lines {
		line := strings.TrimLeft(raw, "# \t")
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)
		if strings.HasPrefix(lower, "usage:") {
			inUsage = true
			rest := strings.TrimSpace(trimmed[len("usage:"):])
			if rest != "" {
				fields := strings.Fields(rest)
				progName = fields[0]
				usageLines = append(usageLines, strings.TrimSpace(strings.TrimPrefix(rest, progName)))
			}
			continue
		}
		if !inUsage {
			continue
		}
		if trimmed == "" {
			break
		}
		if looksLikeSectionHeader(trimmed) {
			break
		}
		if progName == "" {
			progName = strings.Fields(trimmed)[0]
		}
		if strings.HasPrefix(trimmed, progName) {
			trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, progName))
		}
		usageLines = append(usageLines, trimmed)
	}
	out := usageLines[:0]
	for _, l := range usageLines {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return out
}

func looksLikeSectionHeader(line string) bool {
	lower := strings.ToLower(line)
	return strings.HasSuffix(lower, ":") && !strings.Contains(line, " ")
}

// splitOptionsSection extracts the lines of the Options: block.
func splitOptionsSection(doc string) []string {
	lines := strings.Split(doc, "\n")
	var out []string
	inOptions := false
	for _, raw := range lines {
		line := strings.TrimLeft(raw, "# \t")
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)
		if strings.HasPrefix(lower, "options:") {
			inOptions = true
			continue
		}
		if !inOptions {
			continue
		}
		if trimmed == "" {
			continue
		}
		if looksLikeSectionHeader(trimmed) && !strings.HasPrefix(trimmed, "-") {
			break
		}
		out = append(out, trimmed)
	}
	return out
}
