package mind

import (
	"strings"
	"sync"
)

const (
	DefaultChannelLogSize    = 15
	DefaultBotActivityWindow = 5
	ChannelEntryMaxChars     = 100
)

// ChannelLog keeps a bounded rolling log of recent lines per channel.
// Safe for concurrent use.
type ChannelLog struct {
	mu       sync.RWMutex
	size     int
	channels map[string][]string
}

// NewChannelLog creates a log keeping the last size entries per channel.
func NewChannelLog(size int) *ChannelLog {
	if size <= 0 {
		size = DefaultChannelLogSize
	}
	return &ChannelLog{
		size:     size,
		channels: make(map[string][]string),
	}
}

// ChannelEntry formats a "speaker: text" entry with text cut to ChannelEntryMaxChars runes.
func ChannelEntry(speaker, text string) string {
	return speaker + ": " + truncateRunes(text, ChannelEntryMaxChars)
}

// Record appends entry to the channel log, evicting the oldest entry on overflow.
func (l *ChannelLog) Record(channelID, entry string) {
	if channelID == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	entries := append(l.channels[channelID], entry)
	if len(entries) > l.size {
		entries = entries[len(entries)-l.size:]
	}
	l.channels[channelID] = entries
}

// Recent returns the last window entries for the channel, most recent last.
// A non-positive window returns the whole log.
func (l *ChannelLog) Recent(channelID string, window int) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	entries := l.channels[channelID]
	if window > 0 && len(entries) > window {
		entries = entries[len(entries)-window:]
	}
	out := make([]string, len(entries))
	copy(out, entries)
	return out
}

// RecentBotActivity reports whether any of the last window entries was bot-authored.
func (l *ChannelLog) RecentBotActivity(channelID string, window int) bool {
	if window <= 0 {
		window = DefaultBotActivityWindow
	}
	for _, e := range l.Recent(channelID, window) {
		if isBotEntry(e) {
			return true
		}
	}
	return false
}

// Channels returns how many channels have a log.
func (l *ChannelLog) Channels() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.channels)
}

func isBotEntry(entry string) bool {
	return strings.HasPrefix(entry, BotName+":")
}

func truncateRunes(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
