package comments

import (
	"regexp"
	"strings"

	"github.com/existflow/dashcraft/internal/model"
)

var mentionToken = regexp.MustCompile(`@\w+`)

// ActiveMentionQuery finds the mention being typed at cursor (a byte
// offset into text). It returns the text after the last unescaped '@'
// before the cursor and the offset of that '@'. There is no active query
// once a space follows the '@'.
func ActiveMentionQuery(text string, cursor int) (query string, start int, ok bool) {
	if cursor < 0 || cursor > len(text) {
		cursor = len(text)
	}
	before := text[:cursor]

	at := -1
	for i := len(before) - 1; i >= 0; i-- {
		if before[i] != '@' {
			continue
		}
		if i > 0 && before[i-1] == '\\' {
			continue
		}
		at = i
		break
	}
	if at < 0 {
		return "", 0, false
	}

	query = before[at+1:]
	if strings.ContainsAny(query, " \t\n") {
		return "", 0, false
	}
	return query, at, true
}

// FilterCollaborators returns the profiles whose display name or username
// contains query, case-insensitively. An empty query matches everyone.
func FilterCollaborators(profiles []model.Profile, query string) []model.Profile {
	q := strings.ToLower(query)
	var out []model.Profile
	for _, p := range profiles {
		if q == "" ||
			strings.Contains(strings.ToLower(p.DisplayName), q) ||
			strings.Contains(strings.ToLower(p.Username), q) {
			out = append(out, p)
		}
	}
	return out
}

// ExtractMentionTokens returns the names of the @word tokens in content
func ExtractMentionTokens(content string) []string {
	matches := mentionToken.FindAllString(content, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1:])
	}
	return out
}

// ResolveMentions maps the @username tokens of content to the ids of the
// matching profiles. Unknown names are skipped.
func ResolveMentions(profiles []model.Profile, content string) []string {
	ids := []string{}
	seen := map[string]bool{}
	for _, name := range ExtractMentionTokens(content) {
		for _, p := range profiles {
			if strings.EqualFold(p.Username, name) && !seen[p.ID] {
				seen[p.ID] = true
				ids = append(ids, p.ID)
			}
		}
	}
	return ids
}

// HighlightMentions passes every @word token in content through style.
// Tokens are not resolved to users.
func HighlightMentions(content string, style func(string) string) string {
	return mentionToken.ReplaceAllStringFunc(content, style)
}

// Composer is the comment input: its text, the cursor and the users picked
// from mention suggestions
type Composer struct {
	text     string
	cursor   int
	mentions []mention
}

type mention struct {
	userID string
	name   string
}

// SetText replaces the text and moves the cursor
func (c *Composer) SetText(text string, cursor int) {
	if cursor < 0 || cursor > len(text) {
		cursor = len(text)
	}
	c.text = text
	c.cursor = cursor
}

// Text returns the current text
func (c *Composer) Text() string { return c.text }

// Cursor returns the cursor offset
func (c *Composer) Cursor() int { return c.cursor }

// Query returns the mention query at the cursor, if any
func (c *Composer) Query() (string, bool) {
	q, _, ok := ActiveMentionQuery(c.text, c.cursor)
	return q, ok
}

// Select replaces the active mention query with "@<name> " and records
// the user. It reports false when no query is active.
func (c *Composer) Select(p model.Profile) bool {
	_, start, ok := ActiveMentionQuery(c.text, c.cursor)
	if !ok {
		return false
	}
	name := p.Name()
	insert := "@" + name + " "
	c.text = c.text[:start] + insert + c.text[c.cursor:]
	c.cursor = start + len(insert)

	for _, m := range c.mentions {
		if m.userID == p.ID {
			return true
		}
	}
	c.mentions = append(c.mentions, mention{userID: p.ID, name: name})
	return true
}

// Mentions returns the ids of picked users whose @name is still in the text
func (c *Composer) Mentions() []string {
	ids := []string{}
	for _, m := range c.mentions {
		if strings.Contains(c.text, "@"+m.name) {
			ids = append(ids, m.userID)
		}
	}
	return ids
}

// Reset clears the composer after a comment is sent
func (c *Composer) Reset() {
	c.text = ""
	c.cursor = 0
	c.mentions = nil
}
