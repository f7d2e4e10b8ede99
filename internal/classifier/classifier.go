package classifier

import (
	"regexp"
	"strings"
	"unicode"
)

type ViolationKind uint8

const (
	ViolationSpam ViolationKind = iota
	ViolationInvite
	ViolationExcessiveCaps
	ViolationForbiddenWord
	ViolationUntrustedLink
	ViolationZalgo
	ViolationRepeatedChars
)

var violationNames = map[ViolationKind]string{
	ViolationSpam:          "spam",
	ViolationInvite:        "invite",
	ViolationExcessiveCaps: "caps",
	ViolationForbiddenWord: "forbidden_word",
	ViolationUntrustedLink: "suspicious_link",
	ViolationZalgo:         "zalgo",
	ViolationRepeatedChars: "repeated_chars",
}

func (k ViolationKind) String() string {
	if name, ok := violationNames[k]; ok {
		return name
	}
	return "unknown"
}

// Violation is a single rule hit. Word is set for forbidden-word hits and
// Link for untrusted-link hits.
type Violation struct {
	Kind ViolationKind
	Word string
	Link string
}

var (
	invitePattern = regexp.MustCompile(`discord\.gg/[a-zA-Z0-9]+|discordapp\.com/invite/[a-zA-Z0-9]+|discord\.com/invite/[a-zA-Z0-9]+`)
	linkPattern   = regexp.MustCompile(`https?://(?:[-\w.])+(?:[:\d]+)?(?:/(?:[\w/_.])*(?:\?(?:[\w&=%.])*)?(?:#(?:[\w.])*)?)?`)
	zalgoPattern  = regexp.MustCompile(`[\x{0300}-\x{036F}\x{1AB0}-\x{1AFF}\x{1DC0}-\x{1DFF}\x{20D0}-\x{20FF}\x{FE20}-\x{FE2F}]`)
)

type Config struct {
	ForbiddenWords []string
	AllowedDomains []string
	CapsRatio      float64
	MinCapsLength  int
	ZalgoLimit     int
	RepeatLimit    int
}

func DefaultConfig() Config {
	return Config{
		ForbiddenWords: nil,
		AllowedDomains: []string{
			"youtube.com", "youtu.be", "twitter.com", "github.com",
			"stackoverflow.com", "reddit.com", "tenor.com", "giphy.com",
		},
		CapsRatio:     0.7,
		MinCapsLength: 10,
		ZalgoLimit:    5,
		RepeatLimit:   5,
	}
}

// Classifier evaluates a message against the content rules. It is stateless;
// side effects belong to the policy layer.
type Classifier struct {
	cfg Config
}

func New(cfg Config) *Classifier {
	if cfg.CapsRatio == 0 {
		cfg.CapsRatio = 0.7
	}
	if cfg.MinCapsLength == 0 {
		cfg.MinCapsLength = 10
	}
	if cfg.ZalgoLimit == 0 {
		cfg.ZalgoLimit = 5
	}
	if cfg.RepeatLimit == 0 {
		cfg.RepeatLimit = 5
	}
	return &Classifier{cfg: cfg}
}

// Classify returns every rule the text violates, in the fixed rule order the
// policy layer evaluates them (invite, caps, forbidden word, untrusted link,
// zalgo, repeated chars). Rules are independent; an empty result means the
// message is clean.
func (c *Classifier) Classify(text string) []Violation {
	var violations []Violation

	if c.hasInvite(text) {
		violations = append(violations, Violation{Kind: ViolationInvite})
	}
	if c.hasExcessiveCaps(text) {
		violations = append(violations, Violation{Kind: ViolationExcessiveCaps})
	}
	if word, ok := c.forbiddenWord(text); ok {
		violations = append(violations, Violation{Kind: ViolationForbiddenWord, Word: word})
	}
	if link, ok := c.untrustedLink(text); ok {
		violations = append(violations, Violation{Kind: ViolationUntrustedLink, Link: link})
	}
	if c.hasZalgo(text) {
		violations = append(violations, Violation{Kind: ViolationZalgo})
	}
	if c.hasRepeatedChars(text) {
		violations = append(violations, Violation{Kind: ViolationRepeatedChars})
	}

	return violations
}

func (c *Classifier) hasInvite(text string) bool {
	return invitePattern.MatchString(text)
}

func (c *Classifier) hasExcessiveCaps(text string) bool {
	runes := []rune(text)
	if len(runes) < c.cfg.MinCapsLength {
		return false
	}

	caps := 0
	for _, r := range runes {
		if unicode.IsUpper(r) {
			caps++
		}
	}
	return float64(caps)/float64(len(runes)) >= c.cfg.CapsRatio
}

func (c *Classifier) forbiddenWord(text string) (string, bool) {
	if len(c.cfg.ForbiddenWords) == 0 {
		return "", false
	}

	lower := strings.ToLower(text)
	for _, word := range c.cfg.ForbiddenWords {
		if word == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(word)) {
			return word, true
		}
	}
	return "", false
}

// untrustedLink returns the first http(s) link whose domain is not in the
// allow-list. Platform invite links are excluded; the invite rule owns those.
func (c *Classifier) untrustedLink(text string) (string, bool) {
	for _, link := range linkPattern.FindAllString(text, -1) {
		if strings.Contains(link, "discord") {
			continue
		}

		allowed := false
		for _, domain := range c.cfg.AllowedDomains {
			if strings.Contains(link, domain) {
				allowed = true
				break
			}
		}
		if !allowed {
			return link, true
		}
	}
	return "", false
}

func (c *Classifier) hasZalgo(text string) bool {
	return len(zalgoPattern.FindAllString(text, c.cfg.ZalgoLimit+1)) > c.cfg.ZalgoLimit
}

func (c *Classifier) hasRepeatedChars(text string) bool {
	run := 0
	var prev rune
	for i, r := range text {
		if i > 0 && r == prev {
			run++
		} else {
			run = 1
		}
		if run >= c.cfg.RepeatLimit {
			return true
		}
		prev = r
	}
	return false
}
