// Package transcript classifies finished utterances into command codes.
//
// A transcript is only treated as a command when it is addressed to the
// robot, i.e. it contains the wake prefix. The prefix is stripped and the
// remainder is matched against the command table in load order.
package transcript

import (
	"strings"

	"github.com/yongli3/voice-system/pkg/commands"
)

// Default policy values. Lengths are UTF-8 byte counts.
const (
	// DefaultWakePrefix is the robot's address term ("robot").
	DefaultWakePrefix = "机器人"

	// DefaultMinLength rejects fragments shorter than the wake word plus
	// the shortest command could ever be.
	DefaultMinLength = 7

	// DefaultMaxLength caps buffers that grew from a noisy channel.
	DefaultMaxLength = 100
)

// DefaultTopics is the allow-list of free-form keywords forwarded to the
// conversational responder: today, date, time, weather, name, joke, story.
var DefaultTopics = []string{"今天", "日期", "时间", "天气", "名字", "笑话", "故事"}

// Kind is the classification outcome.
type Kind int

const (
	// KindCommand means a table entry matched.
	KindCommand Kind = iota
	// KindFreeForm means no entry matched but the text is on an allowed topic.
	KindFreeForm
	// KindRepeat means no entry matched and the text is off-topic.
	KindRepeat
	// KindUnaddressed means the wake prefix is missing.
	KindUnaddressed
	// KindTooShort means the transcript is under the minimum length.
	KindTooShort
	// KindTooLong means the transcript is over the maximum length.
	KindTooLong
)

// String returns the kind name for logs.
func (k Kind) String() string {
	switch k {
	case KindCommand:
		return "command"
	case KindFreeForm:
		return "free_form"
	case KindRepeat:
		return "repeat"
	case KindUnaddressed:
		return "unaddressed"
	case KindTooShort:
		return "too_short"
	case KindTooLong:
		return "too_long"
	default:
		return "unknown"
	}
}

// Rejected reports whether the transcript was dropped before table matching.
func (k Kind) Rejected() bool {
	return k == KindUnaddressed || k == KindTooShort || k == KindTooLong
}

// Result is the outcome of Classify.
type Result struct {
	Kind Kind

	// Code and Phrase are set for KindCommand.
	Code   int
	Phrase string

	// Text is the transcript with the wake prefix removed.
	// Empty for rejected transcripts.
	Text string
}

// Config holds matcher policy.
type Config struct {
	WakePrefix string
	MinLength  int
	MaxLength  int
	Topics     []string
}

// DefaultConfig returns the production policy.
func DefaultConfig() Config {
	topics := make([]string, len(DefaultTopics))
	copy(topics, DefaultTopics)
	return Config{
		WakePrefix: DefaultWakePrefix,
		MinLength:  DefaultMinLength,
		MaxLength:  DefaultMaxLength,
		Topics:     topics,
	}
}

// Matcher classifies transcripts against a command table.
type Matcher struct {
	cfg   Config
	table *commands.Table
}

// NewMatcher creates a matcher. A nil table matches nothing.
func NewMatcher(table *commands.Table, cfg Config) *Matcher {
	if table == nil {
		table = commands.New()
	}
	return &Matcher{cfg: cfg, table: table}
}

// Config returns the matcher policy.
func (m *Matcher) Config() Config {
	return m.cfg
}

// Classify turns a raw transcript into a Result.
func (m *Matcher) Classify(raw string) Result {
	// Length policy runs before anything touches the table.
	if len(raw) < m.cfg.MinLength {
		return Result{Kind: KindTooShort}
	}
	if len(raw) > m.cfg.MaxLength {
		return Result{Kind: KindTooLong}
	}

	text, ok := StripFirst(raw, m.cfg.WakePrefix)
	if !ok {
		return Result{Kind: KindUnaddressed}
	}

	if entry, ok := m.table.Match(text); ok {
		return Result{Kind: KindCommand, Code: entry.Code, Phrase: entry.Phrase, Text: text}
	}

	if m.onTopic(text) {
		return Result{Kind: KindFreeForm, Text: text}
	}
	return Result{Kind: KindRepeat, Text: text}
}

func (m *Matcher) onTopic(text string) bool {
	for _, topic := range m.cfg.Topics {
		if topic != "" && strings.Contains(text, topic) {
			return true
		}
	}
	return false
}

// StripFirst removes the first occurrence of sub from s.
// Text before and after the occurrence is kept byte for byte; later
// occurrences are left in place. It reports whether sub was found.
// An empty sub is never found.
func StripFirst(s, sub string) (string, bool) {
	if sub == "" {
		return s, false
	}
	i := strings.Index(s, sub)
	if i < 0 {
		return s, false
	}
	return s[:i] + s[i+len(sub):], true
}

// Address prefixes phrase with the wake prefix, producing the transcript a
// manual override stands in for.
func (m *Matcher) Address(phrase string) string {
	return m.cfg.WakePrefix + phrase
}
