// Package persona holds the bot's canned phrases: personality openers,
// emoji reactions, fallback replies, presence statuses and welcome lines.
package persona

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Picker is the slice of a random source persona needs.
type Picker interface {
	Intn(n int) int
}

// Category is one named group of personality phrases.
type Category struct {
	Name    string   `yaml:"name"`
	Phrases []string `yaml:"phrases"`
}

// Fallbacks are replies used when generation fails or is unusable.
type Fallbacks struct {
	Empty     []string `yaml:"empty"`
	Status    []string `yaml:"status"`
	Timeout   []string `yaml:"timeout"`
	Exception []string `yaml:"exception"`
}

// Book is the full phrase table.
type Book struct {
	Personality     []Category `yaml:"personality"`
	Reactions       []string   `yaml:"reactions"`
	ReactionBack    []string   `yaml:"reaction_back"`
	StartupStatuses []string   `yaml:"startup_statuses"`
	Statuses        []string   `yaml:"statuses"`
	Welcome         []string   `yaml:"welcome"` // %s is the member mention
	Fallbacks       Fallbacks  `yaml:"fallbacks"`
	Apology         string     `yaml:"apology"`
}

// Default returns the built-in phrase table.
func Default() *Book {
	return &Book{
		Personality: []Category{
			{Name: "greeting", Phrases: []string{"Hey there!", "Hello!", "Hi! 👋", "What's up?", "Greetings, human!", "Sup! 🤖"}},
			{Name: "thinking", Phrases: []string{"Hmm, interesting...", "Let me think about that...", "That's a good point...", "Ooh, deep question!"}},
			{Name: "agreement", Phrases: []string{"Absolutely!", "I totally agree!", "You're so right!", "Exactly my thoughts!", "Couldn't agree more!"}},
			{Name: "curiosity", Phrases: []string{"Tell me more!", "That sounds fascinating!", "I'd love to hear more about that!", "Go on..."}},
			{Name: "humor", Phrases: []string{"😄", "Haha, good one!", "You're funny!", "That made me chuckle!", "LOL!"}},
		},
		Reactions:    []string{"🤖", "💭", "✨", "🎯", "💡", "🔥", "👀", "❤️", "😊", "🤔", "💯", "🚀"},
		ReactionBack: []string{"👍", "😊", "🤖", "✨", "❤️"},
		StartupStatuses: []string{
			"conversations 👀", "for @mentions", "the chat flow",
			"human thoughts 🧠", "your messages", "for interesting topics",
		},
		Statuses: []string{
			"conversations 👀", "for @mentions", "the chat flow",
			"human thoughts 🧠", "your messages", "for interesting topics",
			"multiple chats 🎭", "the Discord universe", "AI magic happen ✨",
		},
		Welcome: []string{
			"Welcome %s! I'm the friendly AI bot around here! 🤖",
			"Hey %s! Nice to meet you! Feel free to @ me anytime to chat! 👋",
			"Welcome to the server, %s! I'm here if you need an AI friend! ✨",
		},
		Fallbacks: Fallbacks{
			Empty: []string{
				"I'm still processing that... give me a moment! 🤔",
				"That's an interesting point! Let me think...",
				"Hmm, my AI brain is spinning on that one! 🧠",
				"You've got me thinking deeply about that!",
			},
			Status:  []string{"My circuits are a bit overloaded right now! Try again in a moment? ⚡"},
			Timeout: []string{"Whoa, that was a complex thought! My response timed out. 🕐"},
			Exception: []string{
				"Oops! My AI brain hiccupped! 🤖💫",
				"Something went wonky in my neural networks! Try again?",
				"Error 404: Smart response not found! 😅",
			},
		},
		Apology: "Oops! Something went wrong in my AI brain! 🤖💥",
	}
}

// Load reads a YAML override file on top of the defaults. Lists present in
// the file replace the default list wholesale; absent ones are kept.
func Load(path string) (*Book, error) {
	b := Default()
	if path == "" {
		return b, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read persona file: %w", err)
	}
	var over Book
	if err := yaml.Unmarshal(data, &over); err != nil {
		return nil, fmt.Errorf("parse persona file %s: %w", path, err)
	}
	b.merge(&over)
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("persona file %s: %w", path, err)
	}
	return b, nil
}

func (b *Book) merge(o *Book) {
	if len(o.Personality) > 0 {
		b.Personality = o.Personality
	}
	replace(&b.Reactions, o.Reactions)
	replace(&b.ReactionBack, o.ReactionBack)
	replace(&b.StartupStatuses, o.StartupStatuses)
	replace(&b.Statuses, o.Statuses)
	replace(&b.Welcome, o.Welcome)
	replace(&b.Fallbacks.Empty, o.Fallbacks.Empty)
	replace(&b.Fallbacks.Status, o.Fallbacks.Status)
	replace(&b.Fallbacks.Timeout, o.Fallbacks.Timeout)
	replace(&b.Fallbacks.Exception, o.Fallbacks.Exception)
	if o.Apology != "" {
		b.Apology = o.Apology
	}
}

func replace(dst *[]string, src []string) {
	if len(src) > 0 {
		*dst = src
	}
}

// Validate rejects tables that would leave a draw with nothing to pick.
func (b *Book) Validate() error {
	for _, c := range b.Personality {
		if len(c.Phrases) == 0 {
			return fmt.Errorf("personality category %q has no phrases", c.Name)
		}
	}
	return nil
}

// Pick returns a uniformly chosen element, or "" for an empty list.
func Pick(r Picker, list []string) string {
	if len(list) == 0 {
		return ""
	}
	return list[r.Intn(len(list))]
}

// PersonalityPhrase draws a category uniformly, then a phrase within it.
func (b *Book) PersonalityPhrase(r Picker) (category, phrase string) {
	if len(b.Personality) == 0 {
		return "", ""
	}
	c := b.Personality[r.Intn(len(b.Personality))]
	return c.Name, Pick(r, c.Phrases)
}

// WelcomeLine renders one welcome line for the given member mention.
func (b *Book) WelcomeLine(r Picker, mention string) string {
	tpl := Pick(r, b.Welcome)
	if tpl == "" {
		return ""
	}
	return fmt.Sprintf(tpl, mention)
}

// For returns the fallback family named kind ("empty", "status", "timeout",
// "exception"). Unknown kinds get the empty-reply family.
func (f Fallbacks) For(kind string) []string {
	switch kind {
	case "status":
		return f.Status
	case "timeout":
		return f.Timeout
	case "exception":
		return f.Exception
	default:
		return f.Empty
	}
}
