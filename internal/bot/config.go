package bot

import "time"

// BotConfig represents the configuration for the bot
type BotConfig struct {
	// Long polling timeout in seconds
	UpdateTimeout int
	// Article bodies are cut to this many runes to fit a Telegram message
	ContentLimit int
	// Number of definitions shown by /define
	DefinitionCount int
	// Upper bound for handling a single update
	HandlerTimeout time.Duration
}

// DefaultConfig returns the default bot configuration
func DefaultConfig() *BotConfig {
	return &BotConfig{
		UpdateTimeout:   60,
		ContentLimit:    3500,
		DefinitionCount: 3,
		HandlerTimeout:  30 * time.Second,
	}
}
