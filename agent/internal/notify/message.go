package notify

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/sostawatch/sostawatch/pkg/types"
)

const (
	messageHeader = "Possibile novità – Strisce blu (ibridi, focus mild hybrid)"
	messageFooter = "Apri i link per verificare testo ufficiale, data pubblicazione e decorrenza (se indicate)."
	timeLayout    = "2006-01-02 15:04"
)

// message is the channel-independent content of one notification.
type message struct {
	detectedAt time.Time
	zone       string
	entries    []types.ChangeEvent
}

func (n *Notifier) buildMessage(events []types.ChangeEvent, ts time.Time) message {
	entries := events
	if len(entries) > n.maxEntries {
		entries = entries[:n.maxEntries]
	}
	return message{
		detectedAt: ts.In(n.loc),
		zone:       n.loc.String(),
		entries:    entries,
	}
}

func (m message) timestamp() string {
	return fmt.Sprintf("%s (%s)", m.detectedAt.Format(timeLayout), m.zone)
}

// html renders the message for Telegram's HTML parse mode.
func (m message) html() string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b>\n", html.EscapeString(messageHeader))
	fmt.Fprintf(&b, "<b>Rilevazione:</b> %s\n\n", html.EscapeString(m.timestamp()))
	for _, e := range m.entries {
		fmt.Fprintf(&b, "<b>Fonte:</b> %s\n<b>Link:</b> %s\n\n",
			html.EscapeString(e.Source), html.EscapeString(e.URL))
	}
	b.WriteString(html.EscapeString(messageFooter))
	return b.String()
}

// mrkdwn renders the message for Slack.
func (m message) mrkdwn() string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s*\n", slackEscape(messageHeader))
	fmt.Fprintf(&b, "*Rilevazione:* %s\n\n", slackEscape(m.timestamp()))
	for _, e := range m.entries {
		fmt.Fprintf(&b, "*Fonte:* %s\n*Link:* %s\n\n", slackEscape(e.Source), slackEscape(e.URL))
	}
	b.WriteString(slackEscape(messageFooter))
	return b.String()
}

// slackEscape escapes the three characters Slack treats as control sequences.
func slackEscape(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(s)
}
