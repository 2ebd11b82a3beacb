package mind

import (
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"
)

const (
	DefaultHistorySize    = 8
	DefaultSessionTimeout = 600 * time.Second

	PersonalityMin = 0.7
	PersonalityMax = 1.0

	topicMinRunes       = 5 // longer than 4 characters
	topicsPerMessageCap = 3
)

// session is the mutable record behind a Session snapshot.
type session struct {
	history          []Utterance
	lastActivity     time.Time
	messageCount     int
	displayName      string
	personalityScore float64
	topics           map[string]struct{}
}

func (s *session) snapshot(key SessionKey) Session {
	h := make([]Utterance, len(s.history))
	copy(h, s.history)
	topics := make([]string, 0, len(s.topics))
	for t := range s.topics {
		topics = append(topics, t)
	}
	sort.Strings(topics)
	return Session{
		Key:              key,
		History:          h,
		LastActivity:     s.lastActivity,
		MessageCount:     s.messageCount,
		DisplayName:      s.displayName,
		PersonalityScore: s.personalityScore,
		Topics:           topics,
	}
}

// StoreOptions configures a Store. Zero values take defaults.
type StoreOptions struct {
	HistorySize    int
	ChannelLogSize int
	Rand           Rand
	Now            func() time.Time
}

// Store holds sessions and channel activity logs. It lives for the process
// lifetime and is passed to the engine explicitly. Safe for concurrent use.
type Store struct {
	mu          sync.RWMutex
	sessions    map[SessionKey]*session
	channels    *ChannelLog
	historySize int
	rand        Rand
	now         func() time.Time
}

// NewStore creates an empty in-memory store.
func NewStore(opts StoreOptions) *Store {
	if opts.HistorySize <= 0 {
		opts.HistorySize = DefaultHistorySize
	}
	if opts.Rand == nil {
		opts.Rand = DefaultRand()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{
		sessions:    make(map[SessionKey]*session),
		channels:    NewChannelLog(opts.ChannelLogSize),
		historySize: opts.HistorySize,
		rand:        opts.Rand,
		now:         opts.Now,
	}
}

// Channels returns the channel activity log owned by the store.
func (s *Store) Channels() *ChannelLog {
	return s.channels
}

// GetOrCreate returns the session for (userID, channelID), creating it with
// defaults on first reference. An empty identifier yields a detached default
// session that is not stored.
func (s *Store) GetOrCreate(userID, channelID string) Session {
	key := SessionKey{UserID: userID, ChannelID: channelID}
	if !key.valid() {
		return Session{Key: key, PersonalityScore: PersonalityMin}
	}

	s.mu.RLock()
	sess := s.sessions[key]
	if sess != nil {
		snap := sess.snapshot(key)
		s.mu.RUnlock()
		return snap
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOrCreateLocked(key).snapshot(key)
}

// Lookup returns the session for the key if it exists.
func (s *Store) Lookup(userID, channelID string) (Session, bool) {
	key := SessionKey{UserID: userID, ChannelID: channelID}
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess := s.sessions[key]
	if sess == nil {
		return Session{}, false
	}
	return sess.snapshot(key), true
}

func (s *Store) getOrCreateLocked(key SessionKey) *session {
	if sess := s.sessions[key]; sess != nil {
		return sess
	}
	sess := &session{
		history:          make([]Utterance, 0, s.historySize),
		lastActivity:     s.now(),
		personalityScore: uniform(s.rand, PersonalityMin, PersonalityMax),
		topics:           make(map[string]struct{}),
	}
	s.sessions[key] = sess
	return sess
}

// AppendMessage records an utterance in the session and the channel log.
// History keeps the last HistorySize entries; displayName always tracks the
// human participant.
func (s *Store) AppendMessage(userID, channelID, speakerName, text string, isBot bool) {
	key := SessionKey{UserID: userID, ChannelID: channelID}
	if !key.valid() {
		return
	}

	u := Utterance{Speaker: SpeakerUser, Name: speakerName, Text: text}
	if isBot {
		u.Speaker = SpeakerBot
	}

	s.mu.Lock()
	sess := s.getOrCreateLocked(key)
	sess.history = append(sess.history, u)
	if len(sess.history) > s.historySize {
		sess.history = append(sess.history[:0], sess.history[len(sess.history)-s.historySize:]...)
	}
	sess.lastActivity = s.now()
	if speakerName != "" {
		sess.displayName = speakerName
	}
	sess.messageCount++
	for _, t := range ExtractTopics(text, topicsPerMessageCap) {
		sess.topics[t] = struct{}{}
	}
	s.mu.Unlock()

	name := speakerName
	if isBot {
		name = BotName
	}
	s.channels.Record(channelID, ChannelEntry(name, text))
}

// Touch sets a session's last activity time. It is a no-op for unknown keys.
func (s *Store) Touch(userID, channelID string, at time.Time) {
	key := SessionKey{UserID: userID, ChannelID: channelID}
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess := s.sessions[key]; sess != nil {
		sess.lastActivity = at
	}
}

// SweepExpired removes every session idle for longer than timeout at now and
// returns how many were removed.
func (s *Store) SweepExpired(now time.Time, timeout time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, sess := range s.sessions {
		if now.Sub(sess.lastActivity) > timeout {
			delete(s.sessions, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// ExtractTopics returns the first max lowercase alphabetic words longer than
// four characters. It is a keyword heuristic, nothing more.
func ExtractTopics(text string, max int) []string {
	var out []string
	for _, w := range strings.Fields(strings.ToLower(text)) {
		if len(out) == max {
			break
		}
		if utf8.RuneCountInString(w) < topicMinRunes || !isAlpha(w) {
			continue
		}
		out = append(out, w)
	}
	return out
}

func isAlpha(w string) bool {
	for _, r := range w {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return w != ""
}
