package game

import "time"

// Config holds every timing and size constant of the engine.
type Config struct {
	RoundDuration     time.Duration
	TestRoundDuration time.Duration
	FinalMinute       time.Duration
	CountdownFrom     int

	EarlyVoteDuration    time.Duration
	SuspectVoteSoft      time.Duration
	SuspectVoteCountdown time.Duration
	SpyGuessSoft         time.Duration
	SpyGuessCountdown    time.Duration

	MinPlayers     int
	MinHumans      int
	MaxRoomPlayers int
	HistoryLimit   int
	MaxMessageLen  int

	ChatWindow      time.Duration
	ChatMaxInWindow int
	ChatMute        time.Duration
	RateStateTTL    time.Duration

	MatchTick    time.Duration
	QueueTimeout time.Duration
	MaxAutoRoom  int

	FinishedGrace time.Duration
	RoomExpiry    time.Duration
	SweepInterval time.Duration
	SaveInterval  time.Duration

	MaintenanceWarnings []time.Duration

	AdminIDs []int64
}

func DefaultConfig() Config {
	return Config{
		RoundDuration:     1140 * time.Second,
		TestRoundDuration: 60 * time.Second,
		FinalMinute:       60 * time.Second,
		CountdownFrom:     10,

		EarlyVoteDuration:    15 * time.Second,
		SuspectVoteSoft:      20 * time.Second,
		SuspectVoteCountdown: 10 * time.Second,
		SpyGuessSoft:         20 * time.Second,
		SpyGuessCountdown:    10 * time.Second,

		MinPlayers:     3,
		MinHumans:      2,
		MaxRoomPlayers: 16,
		HistoryLimit:   100,
		MaxMessageLen:  120,

		ChatWindow:      time.Second,
		ChatMaxInWindow: 4,
		ChatMute:        5 * time.Second,
		RateStateTTL:    time.Hour,

		MatchTick:    10 * time.Second,
		QueueTimeout: 120 * time.Second,
		MaxAutoRoom:  8,

		FinishedGrace: 120 * time.Second,
		RoomExpiry:    time.Hour,
		SweepInterval: 5 * time.Minute,
		SaveInterval:  5 * time.Second,

		MaintenanceWarnings: []time.Duration{10 * time.Minute, 5 * time.Minute, time.Minute},
	}
}
