package upload

import (
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// placeholderName replaces names that sanitize to nothing.
const placeholderName = "file"

// unassignedOwner is the folder for documents uploaded without an owner.
const unassignedOwner = "unassigned"

// letters that carry no combining mark to strip.
var foldReplacer = strings.NewReplacer(
	"ß", "ss", "æ", "ae", "Æ", "AE", "œ", "oe", "Œ", "OE",
	"ø", "o", "Ø", "O", "đ", "d", "Đ", "D", "ł", "l", "Ł", "L", "þ", "th", "Þ", "TH",
)

// Sanitize turns a user-supplied filename into a storage-safe name made of
// [A-Za-z0-9._-] only. Diacritics are folded to their base letters,
// whitespace runs become a single underscore and everything else outside the
// allowed set is dropped. A name that ends up empty becomes "file".
// Sanitize(Sanitize(s)) == Sanitize(s) for every s.
func Sanitize(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}

	folded, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		foldReplacer.Replace(name),
	)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	b.Grow(len(folded))
	pendingSep := false
	for _, r := range folded {
		switch {
		case unicode.IsSpace(r) || r == '_':
			pendingSep = b.Len() > 0
		case allowed(r):
			if pendingSep {
				b.WriteByte('_')
				pendingSep = false
			}
			b.WriteRune(r)
		}
	}

	if b.Len() == 0 {
		return placeholderName
	}
	return b.String()
}

func allowed(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') ||
		r == '.' || r == '-'
}

// Namer produces storage paths that never repeat within a process, even for
// identical filenames selected in the same millisecond.
type Namer struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewNamer creates a Namer; a nil clock means time.Now.
func NewNamer(now func() time.Time) *Namer {
	if now == nil {
		now = time.Now
	}
	return &Namer{now: now}
}

// Next returns "<millis>_<sanitized name>", prefixed with "<owner>/" for
// documents.
func (n *Namer) Next(kind Kind, ownerID, filename string) string {
	n.mu.Lock()
	ms := n.now().UnixMilli()
	if ms <= n.last {
		ms = n.last + 1
	}
	n.last = ms
	n.mu.Unlock()

	name := strconv.FormatInt(ms, 10) + "_" + Sanitize(filename)
	if kind != KindDocument {
		return name
	}
	return ownerFolder(ownerID) + "/" + name
}

var separatorReplacer = strings.NewReplacer("/", "_", `\`, "_")

// ownerFolder maps ownerID onto a single path segment. The whole ID is kept,
// separators included. A folder that is only dots becomes "unassigned", and
// any lossy mapping gets a short suffix derived from the raw ID so distinct
// owners never share a folder.
func ownerFolder(ownerID string) string {
	if strings.TrimSpace(ownerID) == "" {
		return unassignedOwner
	}
	folder := Sanitize(separatorReplacer.Replace(ownerID))
	if strings.Trim(folder, ".") == "" {
		folder = unassignedOwner
	}
	if folder != ownerID {
		folder += "-" + uuid.NewSHA1(uuid.NameSpaceURL, []byte(ownerID)).String()[:8]
	}
	return folder
}
