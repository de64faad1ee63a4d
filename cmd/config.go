package main

import (
	"fmt"
	"time"
)

type Config struct {
	Host    string `env:"HOST,default=localhost"`
	Port    int    `env:"PORT,default=8080"`
	AppName string `env:"APP_NAME,default=doclink-messaging"`

	LogLevel       string `env:"LOG_LEVEL,required=true"`
	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath  string `env:"BLUGE_FILEPATH,required=true"`

	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,required=true"`
	MaxContentLength  int           `env:"MAX_CONTENT_LENGTH,required=true"`
	LimitMessages     *int          `env:"LIMIT_MESSAGES"`

	EnableModeration          bool   `env:"ENABLE_MODERATION,default=true"`
	ModerationCharReplacement string `env:"MODERATION_CHARACTER_REPLACEMENT,default=*"`

	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,required=true"`
	MaxMessageSize       int64         `env:"MAX_MESSAGE_SIZE,default=4096"`
	WriteWait            time.Duration `env:"WRITE_WAIT,default=10s"`
	PongWait             time.Duration `env:"PONG_WAIT,default=60s"`
	PingPeriod           time.Duration `env:"PING_PERIOD,default=54s"`

	RestartInterval time.Duration `env:"RESTART_INTERVAL,required=true"`
	GCInterval      time.Duration `env:"GC_INTERVAL,default=10m"`
	StatsInterval   time.Duration `env:"STATS_INTERVAL,default=1m"`
}

func characterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"MODERATION_CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
