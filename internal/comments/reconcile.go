package comments

import (
	"strings"

	"github.com/existflow/dashcraft/internal/model"
)

// TempIDPrefix marks comments that exist only locally until the server
// confirms them
const TempIDPrefix = "temp-"

// IsTemporaryID reports whether id belongs to an unconfirmed comment
func IsTemporaryID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}

func indexOf(list []model.Comment, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

// matchesTemp reports whether c is the confirmed form of the temporary
// comment tmp
func matchesTemp(tmp, c model.Comment) bool {
	return IsTemporaryID(tmp.ID) && tmp.UserID == c.UserID && tmp.Content == c.Content
}

func clone(list []model.Comment) []model.Comment {
	out := make([]model.Comment, len(list))
	copy(out, list)
	return out
}

// MergeConfirmed applies the server's record for the comment posted as
// tempID. The server record always wins: it replaces the temporary entry,
// or an entry with the same id that arrived first through the change feed.
func MergeConfirmed(list []model.Comment, tempID string, confirmed model.Comment) []model.Comment {
	out := clone(list)
	if i := indexOf(out, confirmed.ID); i >= 0 {
		out[i] = confirmed
		if j := indexOf(out, tempID); j >= 0 {
			out = append(out[:j], out[j+1:]...)
		}
		return out
	}
	if j := indexOf(out, tempID); j >= 0 {
		out[j] = confirmed
		return out
	}
	return append(out, confirmed)
}

// MergeRemoteInsert applies a comment seen on the change feed. A comment
// already present by id leaves the list unchanged; a temporary entry with
// the same author and content is replaced; anything else is appended.
func MergeRemoteInsert(list []model.Comment, c model.Comment) ([]model.Comment, bool) {
	if indexOf(list, c.ID) >= 0 {
		return list, false
	}
	out := clone(list)
	for i := range out {
		if matchesTemp(out[i], c) {
			out[i] = c
			return out, true
		}
	}
	return append(out, c), true
}

// RemoveComment drops the comment with the given id
func RemoveComment(list []model.Comment, id string) ([]model.Comment, bool) {
	i := indexOf(list, id)
	if i < 0 {
		return list, false
	}
	out := clone(list)
	return append(out[:i], out[i+1:]...), true
}
