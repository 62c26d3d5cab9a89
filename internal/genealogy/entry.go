package genealogy

import (
	"regexp"
	"strings"
)

// DefaultWordPattern matches one capitalized word: an uppercase letter
// (Å, Ä, Ö, Ü and any other Unicode uppercase) followed by lowercase letters,
// apostrophes or hyphens. An uppercase letter right after a hyphen or
// apostrophe continues the word, as in Öberg-Lind or O'Brien.
const DefaultWordPattern = `\p{Lu}(?:['’-]\p{Lu}|[\p{Ll}'’-])+`

var (
	entryMarkerPattern = regexp.MustCompile(`^\s*(\d{1,4})\.\s+`)
	newlinePattern     = regexp.MustCompile(`\r\n|\r|\n`)
)

// Parser holds the locale-dependent rules used to read entries. A Parser has
// no mutable state and may be shared between goroutines.
type Parser struct {
	wordExpr string
	nameRun  *regexp.Regexp
}

// Option configures a Parser.
type Option func(*Parser)

// WithWordPattern replaces the capitalized-word expression used for name and
// marriage detection. The expression must not contain capture groups.
func WithWordPattern(expr string) Option {
	return func(p *Parser) {
		p.wordExpr = expr
	}
}

// NewParser builds a Parser. It panics if a word pattern does not compile,
// like regexp.MustCompile.
func NewParser(opts ...Option) *Parser {
	p := &Parser{wordExpr: DefaultWordPattern}
	for _, opt := range opts {
		opt(p)
	}
	// Optional markdown bold around the name, as OCR post-editors often add it.
	p.nameRun = regexp.MustCompile(`^(\*\*|__)?(` + p.wordExpr + `(?: ` + p.wordExpr + `)*)`)
	return p
}

var std = NewParser()

// ParseEntry decomposes one raw span with the default rules.
func ParseEntry(raw string) Person {
	return std.ParseEntry(raw)
}

// IsCapitalizedNameRun reports whether s starts with a run of capitalized words.
func IsCapitalizedNameRun(s string) bool {
	return std.IsCapitalizedNameRun(s)
}

// IsMarriageIndicator reports whether line opens a marriage paragraph for a
// person whose first name is firstName (may be empty).
func IsMarriageIndicator(line, firstName string) bool {
	return std.IsMarriageIndicator(line, firstName)
}

func (p *Parser) IsCapitalizedNameRun(s string) bool {
	return p.nameRun.MatchString(strings.TrimSpace(s))
}

// DetectName splits line into the leading name run and the rest of the line.
// The rest keeps its leading separator. ok is false when the line does not
// start with a capitalized word.
func (p *Parser) DetectName(line string) (name, rest string, ok bool) {
	m := p.nameRun.FindStringSubmatchIndex(line)
	if m == nil {
		return "", line, false
	}
	name = line[m[4]:m[5]]
	rest = line[m[1]:]
	if m[2] >= 0 {
		rest = strings.TrimPrefix(rest, line[m[2]:m[3]])
	}
	return name, rest, true
}

func (p *Parser) IsMarriageIndicator(line, firstName string) bool {
	return p.marriageMatcher(firstName).MatchString(strings.TrimSpace(line))
}

// marriageMatcher builds the line-start pattern for "<first name> married",
// "Married", "He married" and "She married". Without a first name any
// capitalized word may lead.
func (p *Parser) marriageMatcher(firstName string) *regexp.Regexp {
	lead := p.wordExpr
	if firstName != "" {
		lead = `(?i:` + regexp.QuoteMeta(firstName) + `)`
	}
	return regexp.MustCompile(`^(?:(?i:(?:he\s+|she\s+)?married)|` + lead + `\s+(?i:married))\b`)
}

type lineState int

const (
	scanningMain lineState = iota
	betweenParagraphs
	accumulatingSub
)

// ParseEntry decomposes one raw span into a Person. It never fails: a span
// without a marker has an empty number, and a first line without a name run
// becomes plain prose.
func (p *Parser) ParseEntry(raw string) Person {
	person := Person{RawText: raw, SubParagraphs: []string{}}

	body := raw
	if m := entryMarkerPattern.FindStringSubmatchIndex(raw); m != nil {
		person.Number = raw[m[2]:m[3]]
		body = raw[m[1]:]
	}

	lines := newlinePattern.Split(body, -1)
	for len(lines) > 0 && isBlank(lines[0]) {
		lines = lines[1:]
	}
	if len(lines) == 0 {
		return person
	}

	first := strings.TrimSpace(lines[0])
	var main []string
	if name, rest, ok := p.DetectName(first); ok {
		person.Name = name
		lead := emphasize(name)
		if strings.TrimSpace(rest) != "" {
			if rest[0] == ' ' || rest[0] == '\t' {
				lead += " "
			}
			lead += proseLine(rest)
		}
		main = append(main, lead)
	} else {
		main = append(main, proseLine(first))
	}

	marriage := p.marriageMatcher(firstToken(person.Name))

	var block []string
	flush := func() {
		if len(block) == 0 {
			return
		}
		if s := flattenBlock(block); s != "" {
			person.SubParagraphs = append(person.SubParagraphs, s)
		}
		block = nil
	}

	state := scanningMain
	for _, line := range lines[1:] {
		blank := isBlank(line)
		switch state {
		case scanningMain:
			switch {
			case blank:
				state = betweenParagraphs
			case marriage.MatchString(strings.TrimSpace(line)):
				block = append(block, line)
				state = accumulatingSub
			default:
				main = append(main, proseLine(strings.TrimSpace(line)))
			}
		case betweenParagraphs:
			if !blank {
				block = append(block, line)
				state = accumulatingSub
			}
		case accumulatingSub:
			if blank {
				flush()
				state = betweenParagraphs
			} else {
				block = append(block, line)
			}
		}
	}
	flush()

	person.MainParagraph = strings.Join(main, LineBreak)
	return person
}

func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}

func firstToken(name string) string {
	if fields := strings.Fields(name); len(fields) > 0 {
		return fields[0]
	}
	return ""
}
