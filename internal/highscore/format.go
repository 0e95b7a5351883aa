package highscore

import (
	"fmt"

	"github.com/tomz197/reflex/internal/game"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FormatScore renders a score with grouped digits, e.g. 12,340.
func FormatScore(score int) string {
	return printer.Sprintf("%d", score)
}

// FormatScoreIn renders a score using the grouping rules of tag.
func FormatScoreIn(tag language.Tag, score int) string {
	return message.NewPrinter(tag).Sprintf("%d", score)
}

// FormatEntry renders one leaderboard line without the rank.
func FormatEntry(e game.HighScoreEntry) string {
	return fmt.Sprintf("%-6s %8s  %4dms", e.Difficulty, FormatScore(e.Score), e.AvgReactionMs)
}
