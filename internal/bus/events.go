package bus

import (
	"strconv"
	"strings"
	"time"
)

type EventKind int

const (
	// KindText is free text: a search query or a main-menu label.
	KindText EventKind = iota
	KindStart
	KindStats
	KindChart
	KindNavigate
)

func (k EventKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindStart:
		return "start"
	case KindStats:
		return "stats"
	case KindChart:
		return "chart"
	case KindNavigate:
		return "navigate"
	default:
		return "unknown"
	}
}

// Main-menu labels shown on the reply keyboard.
const (
	MenuSearch = "🔎 Search"
	MenuStats  = "📊 Statistics"
	MenuChart  = "📈 Chart"
)

type InboundEvent struct {
	ID        string
	Channel   string
	SenderID  string
	ChatID    string
	Kind      EventKind
	Text      string
	Page      int // target page for KindNavigate
	MessageID int // message the event originated from, if any
	Timestamp time.Time
	Metadata  map[string]any
}

func (e *InboundEvent) SessionKey() string {
	return e.Channel + ":" + e.ChatID
}

type ChatAction string

const (
	ActionTyping      ChatAction = "typing"
	ActionUploadPhoto ChatAction = "upload_photo"
)

type OutboundMessage struct {
	ChatID   string
	Content  string
	Markdown bool
	Nav      Nav  // inline page controls
	Menu     bool // attach the main-menu reply keyboard
}

// Nav describes page controls: Prev/Next hold the target page, 0 when absent.
type Nav struct {
	Prev int
	Next int
}

func (n Nav) Empty() bool {
	return n.Prev == 0 && n.Next == 0
}

const navTag = "pg"

// NavToken encodes a page-change request as "pg|<page>".
func NavToken(page int) string {
	return navTag + "|" + strconv.Itoa(page)
}

// ParseNavToken decodes a NavToken. Anything else reports false.
func ParseNavToken(data string) (int, bool) {
	tag, raw, ok := strings.Cut(data, "|")
	if !ok || tag != navTag {
		return 0, false
	}
	page, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, false
	}
	return page, true
}
