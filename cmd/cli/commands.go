package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/keshon/server-chatter/internal/ai"
	"github.com/keshon/server-chatter/internal/config"
	"github.com/keshon/server-chatter/internal/mind"
	v "github.com/keshon/server-chatter/internal/version"
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", v.AppName, v.AppVersion)
		},
	}
}

func decideCmd() *cobra.Command {
	var (
		text      string
		mention   bool
		dm        bool
		fromBot   bool
		botActive bool
		hour      int
		base      float64
		seed      int64
	)
	cmd := &cobra.Command{
		Use:   "decide",
		Short: "Evaluate the response decision for a message",
		RunE: func(cmd *cobra.Command, args []string) error {
			if hour < 0 || hour > 23 {
				return fmt.Errorf("--hour must be 0..23, got %d", hour)
			}
			cfg := mind.DefaultDecisionConfig()
			cfg.BaseChance = base

			ev := mind.MessageEvent{
				AuthorID:     "cli",
				AuthorIsBot:  fromBot,
				ChannelID:    "cli",
				Text:         text,
				BotMentioned: mention,
			}
			if dm {
				ev.ChannelKind = mind.ChannelDirect
			}

			at := time.Date(2000, 1, 1, hour, 0, 0, 0, time.Local)
			d := mind.NewDecider(cfg, mind.NewRand(seed), func() time.Time { return at })
			chance := mind.ComputeAmbientChance(cfg, mind.AmbientInput{Text: text, BotRecentlyActive: botActive, Hour: hour})

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "base:             %.4f\n", chance.Base)
			fmt.Fprintf(out, "keyword matches:  %d (+%.4f)\n", chance.KeywordMatches, chance.EngagementBonus)
			fmt.Fprintf(out, "length bonus:     %.4f\n", chance.LengthBonus)
			fmt.Fprintf(out, "time multiplier:  %.2f\n", chance.TimeMultiplier)
			fmt.Fprintf(out, "ambient chance:   %.4f\n", chance.Total)
			fmt.Fprintf(out, "trigger phrase:   %t\n", mind.ContainsTrigger(cfg, text))

			res := d.ShouldRespond(ev, botActive)
			fmt.Fprintf(out, "decision:         respond=%t reason=%s", res.Respond, res.Reason)
			if res.Reason == mind.ReasonAmbient || res.Reason == mind.ReasonSilent {
				fmt.Fprintf(out, " draw=%.4f", res.Draw)
			}
			fmt.Fprintln(out)
			return nil
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "message text")
	cmd.Flags().BoolVar(&mention, "mention", false, "message mentions the bot")
	cmd.Flags().BoolVar(&dm, "dm", false, "message arrived as a direct message")
	cmd.Flags().BoolVar(&fromBot, "from-bot", false, "message author is a bot")
	cmd.Flags().BoolVar(&botActive, "bot-active", false, "bot spoke in the last few channel messages")
	cmd.Flags().IntVar(&hour, "hour", time.Now().Hour(), "local hour to evaluate at")
	cmd.Flags().Float64Var(&base, "base", mind.DefaultDecisionConfig().BaseChance, "base ambient chance")
	cmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed for the ambient draw")
	return cmd
}

type promptFlags struct {
	name      string
	text      string
	score     float64
	history   []string
	maxTokens int
}

func (f *promptFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "someone", "display name of the speaker")
	cmd.Flags().StringVar(&f.text, "text", "", "message text")
	cmd.Flags().Float64Var(&f.score, "score", 0.85, "session personality score (0.7..1.0)")
	cmd.Flags().StringSliceVar(&f.history, "history", nil, `history lines, e.g. "alice: hi","Bot: hello"`)
	cmd.Flags().IntVar(&f.maxTokens, "max-tokens", (ai.MinNewTokens+ai.MaxNewTokens)/2, "max_new_tokens")
}

func (f *promptFlags) request() ai.Request {
	return ai.Request{
		Prompt:       ai.BuildPrompt(f.history, f.score, f.name, f.text),
		MaxNewTokens: f.maxTokens,
		Temperature:  ai.Temperature(f.score),
	}
}

func promptCmd() *cobra.Command {
	var f promptFlags
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Render the generation prompt for a message",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := f.request()
			out := cmd.OutOrStdout()
			if !asJSON {
				fmt.Fprintln(out, req.Prompt)
				return nil
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(req.Payload())
		},
	}
	f.bind(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full request payload")
	return cmd
}

func askCmd() *cobra.Command {
	var f promptFlags
	cmd := &cobra.Command{
		Use:   "ask",
		Short: "Send one generation request and print the parsed reply",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(f.text) == "" {
				return fmt.Errorf("--text is required")
			}
			config.LoadDotEnv()
			cfg, err := config.Parse()
			if err != nil {
				return err
			}
			if cfg.HuggingFaceToken == "" {
				fmt.Fprintln(os.Stderr, "warning: HUGGINGFACE_TOKEN is not set")
			}
			client := ai.NewClient(ai.Options{
				URL:     cfg.HuggingFaceAPIURL,
				Token:   cfg.HuggingFaceToken,
				Timeout: cfg.GenerationTimeout,
				RPS:     cfg.GenerationRPS,
			})
			reply, err := client.Generate(context.Background(), f.request())
			if err != nil {
				return fmt.Errorf("generation failed (%s): %w", ai.ClassifyFailure(err), err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), reply)
			return nil
		},
	}
	f.bind(cmd)
	return cmd
}
