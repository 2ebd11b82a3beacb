package mind

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"
)

// DecisionConfig holds the weights for the ambient response chance.
type DecisionConfig struct {
	BaseChance         float64 // ambient base probability
	BotActiveDampening float64 // multiplier on BaseChance when the bot spoke recently
	BotActivityWindow  int     // channel entries inspected for bot activity
	KeywordBonus       float64 // per engagement keyword match
	LengthDivisor      float64 // message runes per unit of length bonus
	MaxLengthBonus     float64
	ActiveHourFrom     int // inclusive local hour
	ActiveHourTo       int // inclusive local hour
	ActiveMultiplier   float64
	QuietMultiplier    float64
	MaxChance          float64
	TriggerPhrases     []string
	EngagementKeywords []string
}

// DefaultDecisionConfig returns the stock tuning: 12% base, 40% cap.
func DefaultDecisionConfig() DecisionConfig {
	return DecisionConfig{
		BaseChance:         0.12,
		BotActiveDampening: 0.3,
		BotActivityWindow:  DefaultBotActivityWindow,
		KeywordBonus:       0.03,
		LengthDivisor:      200,
		MaxLengthBonus:     0.08,
		ActiveHourFrom:     12,
		ActiveHourTo:       22,
		ActiveMultiplier:   1.2,
		QuietMultiplier:    0.8,
		MaxChance:          0.4,
		TriggerPhrases:     []string{"ai", "bot", "artificial", "intelligence", "hey bot", "robot"},
		EngagementKeywords: []string{
			"what", "how", "why", "think", "opinion", "believe", "feel", "should",
			"anyone", "everybody", "someone", "thoughts", "?", "help", "advice",
		},
	}
}

// AmbientInput is everything the ambient chance depends on.
type AmbientInput struct {
	Text              string
	BotRecentlyActive bool
	Hour              int // local hour, 0..23
}

// AmbientChance is the breakdown of an ambient response probability.
type AmbientChance struct {
	Base            float64
	KeywordMatches  int
	EngagementBonus float64
	LengthBonus     float64
	TimeMultiplier  float64
	Total           float64 // clamped to MaxChance
}

// ComputeAmbientChance is pure: no randomness, no state.
func ComputeAmbientChance(cfg DecisionConfig, in AmbientInput) AmbientChance {
	c := AmbientChance{Base: cfg.BaseChance}
	if in.BotRecentlyActive {
		c.Base *= cfg.BotActiveDampening
	}

	lower := strings.ToLower(in.Text)
	for _, kw := range cfg.EngagementKeywords {
		if kw != "" && strings.Contains(lower, kw) {
			c.KeywordMatches++
		}
	}
	c.EngagementBonus = float64(c.KeywordMatches) * cfg.KeywordBonus

	if cfg.LengthDivisor > 0 {
		c.LengthBonus = math.Min(float64(utf8.RuneCountInString(in.Text))/cfg.LengthDivisor, cfg.MaxLengthBonus)
	}

	c.TimeMultiplier = cfg.QuietMultiplier
	if in.Hour >= cfg.ActiveHourFrom && in.Hour <= cfg.ActiveHourTo {
		c.TimeMultiplier = cfg.ActiveMultiplier
	}

	c.Total = math.Min((c.Base+c.EngagementBonus+c.LengthBonus)*c.TimeMultiplier, cfg.MaxChance)
	return c
}

// ContainsTrigger reports whether text contains any trigger phrase, case-insensitively.
func ContainsTrigger(cfg DecisionConfig, text string) bool {
	lower := strings.ToLower(text)
	for _, p := range cfg.TriggerPhrases {
		if p != "" && strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// Reason says why a decision went the way it did.
type Reason string

const (
	ReasonBotAuthor Reason = "bot_author"
	ReasonMention   Reason = "mention"
	ReasonDirect    Reason = "direct_message"
	ReasonTrigger   Reason = "trigger_phrase"
	ReasonAmbient   Reason = "ambient"
	ReasonSilent    Reason = "silent"
)

// Decision is the outcome of ShouldRespond.
type Decision struct {
	Respond bool
	Reason  Reason
	Chance  AmbientChance // set only when the ambient draw ran
	Draw    float64
}

// Decider applies the response rules. The only side effect is a random draw.
type Decider struct {
	cfg  DecisionConfig
	rand Rand
	now  func() time.Time
}

// NewDecider creates a Decider. A nil rand or now take process defaults.
func NewDecider(cfg DecisionConfig, r Rand, now func() time.Time) *Decider {
	if r == nil {
		r = DefaultRand()
	}
	if now == nil {
		now = time.Now
	}
	return &Decider{cfg: cfg, rand: r, now: now}
}

// Config returns the decider's tuning.
func (d *Decider) Config() DecisionConfig {
	return d.cfg
}

// ShouldRespond decides whether ev deserves a reply. Bot authors never do;
// mentions, direct messages and trigger phrases always do; everything else
// goes to the ambient draw.
func (d *Decider) ShouldRespond(ev MessageEvent, botRecentlyActive bool) Decision {
	switch {
	case ev.AuthorIsBot:
		return Decision{Reason: ReasonBotAuthor}
	case ev.BotMentioned:
		return Decision{Respond: true, Reason: ReasonMention}
	case ev.IsDirect():
		return Decision{Respond: true, Reason: ReasonDirect}
	case ContainsTrigger(d.cfg, ev.Text):
		return Decision{Respond: true, Reason: ReasonTrigger}
	}

	chance := ComputeAmbientChance(d.cfg, AmbientInput{
		Text:              ev.Text,
		BotRecentlyActive: botRecentlyActive,
		Hour:              d.now().Hour(),
	})
	draw := d.rand.Float64()
	if draw < chance.Total {
		return Decision{Respond: true, Reason: ReasonAmbient, Chance: chance, Draw: draw}
	}
	return Decision{Reason: ReasonSilent, Chance: chance, Draw: draw}
}
