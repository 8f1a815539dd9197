package game

import (
	"encoding/json"
	"sort"
	"strings"
	"time"
)

const (
	AutoPrefix = "auto_"
	TestPrefix = "test_"
)

// Phase is the exclusive state of a room. Final minute, countdown and
// early vote are overlays on PhaseRunning.
type Phase string

const (
	PhaseLobby       Phase = "LOBBY"
	PhaseRunning     Phase = "RUNNING"
	PhaseSuspectVote Phase = "SUSPECT_VOTE"
	PhaseSpyGuess    Phase = "SPY_GUESS"
	PhaseFinished    Phase = "FINISHED"
)

// Participant is a room member. Negative user ids are bot placeholders.
type Participant struct {
	UserID   int64  `json:"user_id"`
	Name     string `json:"name"`
	Callsign string `json:"callsign,omitempty"`
}

func (p Participant) IsBot() bool {
	return p.UserID < 0
}

// Handle is the @name shown outside a running round.
func (p Participant) Handle() string {
	return "@" + strings.TrimPrefix(p.Name, "@")
}

// IDSet is a set of user ids, encoded as a sorted JSON list.
type IDSet map[int64]struct{}

func (s IDSet) Add(id int64) {
	s[id] = struct{}{}
}

func (s IDSet) Has(id int64) bool {
	_, ok := s[id]
	return ok
}

func (s IDSet) Sorted() []int64 {
	ids := make([]int64, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s IDSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

func (s *IDSet) UnmarshalJSON(data []byte) error {
	var ids []int64
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = make(IDSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return nil
}

// Room is the persisted state of one room. Live timers are kept apart in roomTimers.
type Room struct {
	Token        string        `json:"token"`
	OwnerID      int64         `json:"owner_id"`
	Participants []Participant `json:"participants"`
	Phase        Phase         `json:"phase"`
	GameStarted  bool          `json:"game_started"`
	SpyID        *int64        `json:"spy_id"`
	Location     string        `json:"location"`
	Messages     []string      `json:"messages"`

	Votes            map[int64]int64 `json:"votes"`
	BannedFromVoting IDSet           `json:"banned_from_voting"`
	VotesFor         int             `json:"votes_for"`
	VotesAgainst     int             `json:"votes_against"`
	Voters           IDSet           `json:"voters"`
	VoteInProgress   bool            `json:"vote_in_progress"`

	LastActivity       time.Time `json:"last_activity"`
	CreatedAt          time.Time `json:"created_at"`
	LastMinuteChat     bool      `json:"last_minute_chat"`
	WaitingForSpyGuess bool      `json:"waiting_for_spy_guess"`
	SpyGuess           string    `json:"spy_guess"`
	ResultsProcessed   bool      `json:"results_processed"`
	ContentPack        string    `json:"content_pack"`
	IsTestGame         bool      `json:"is_test_game"`
	TestSpyIsOwner     bool      `json:"test_spy_is_owner"`
}

func newRoom(token string, owner Participant, now time.Time) *Room {
	return &Room{
		Token:            token,
		OwnerID:          owner.UserID,
		Participants:     []Participant{owner},
		Phase:            PhaseLobby,
		Messages:         []string{},
		Votes:            map[int64]int64{},
		BannedFromVoting: IDSet{},
		Voters:           IDSet{},
		LastActivity:     now,
		CreatedAt:        now,
	}
}

func (r *Room) IsAuto() bool {
	return strings.HasPrefix(r.Token, AutoPrefix)
}

func (r *Room) IsTest() bool {
	return strings.HasPrefix(r.Token, TestPrefix)
}

// IsPrivate rooms reset in place after a round instead of being deleted.
func (r *Room) IsPrivate() bool {
	return !r.IsAuto() && !r.IsTest()
}

// InRound reports whether a round is being played, voted or guessed.
func (r *Room) InRound() bool {
	switch r.Phase {
	case PhaseRunning, PhaseSuspectVote, PhaseSpyGuess:
		return true
	}
	return false
}

func (r *Room) IsSpy(userID int64) bool {
	return r.SpyID != nil && *r.SpyID == userID
}

func (r *Room) Participant(userID int64) (Participant, bool) {
	for _, p := range r.Participants {
		if p.UserID == userID {
			return p, true
		}
	}
	return Participant{}, false
}

func (r *Room) Has(userID int64) bool {
	_, ok := r.Participant(userID)
	return ok
}

// Humans returns the participants that receive notifications.
func (r *Room) Humans() []Participant {
	out := make([]Participant, 0, len(r.Participants))
	for _, p := range r.Participants {
		if !p.IsBot() {
			out = append(out, p)
		}
	}
	return out
}

func (r *Room) Bots() []Participant {
	out := []Participant{}
	for _, p := range r.Participants {
		if p.IsBot() {
			out = append(out, p)
		}
	}
	return out
}

func (r *Room) remove(userID int64) (Participant, bool) {
	for i, p := range r.Participants {
		if p.UserID == userID {
			r.Participants = append(r.Participants[:i], r.Participants[i+1:]...)
			delete(r.Votes, userID)
			for voter, target := range r.Votes {
				if target == userID {
					delete(r.Votes, voter)
				}
			}
			delete(r.BannedFromVoting, userID)
			return p, true
		}
	}
	return Participant{}, false
}

// appendMessage keeps the last limit lines.
func (r *Room) appendMessage(line string, limit int) {
	r.Messages = append(r.Messages, line)
	if len(r.Messages) > limit {
		r.Messages = append([]string(nil), r.Messages[len(r.Messages)-limit:]...)
	}
}

// displayName is the callsign while a round is live, the handle otherwise.
func (r *Room) displayName(p Participant) string {
	if r.GameStarted && p.Callsign != "" {
		return p.Callsign
	}
	return p.Handle()
}

// clearRound drops everything a finished round leaves behind.
func (r *Room) clearRound() {
	r.GameStarted = false
	r.SpyID = nil
	r.Location = ""
	r.Votes = map[int64]int64{}
	r.BannedFromVoting = IDSet{}
	r.VotesFor, r.VotesAgainst = 0, 0
	r.Voters = IDSet{}
	r.VoteInProgress = false
	r.LastMinuteChat = false
	r.WaitingForSpyGuess = false
	r.SpyGuess = ""
	for i := range r.Participants {
		r.Participants[i].Callsign = ""
	}
}

// RoomSummary is the admin view of a room.
type RoomSummary struct {
	Token        string    `json:"token"`
	OwnerID      int64     `json:"owner_id"`
	Phase        Phase     `json:"phase"`
	Players      int       `json:"players"`
	Humans       int       `json:"humans"`
	ContentPack  string    `json:"content_pack,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
}

func (r *Room) Summary() RoomSummary {
	return RoomSummary{
		Token:        r.Token,
		OwnerID:      r.OwnerID,
		Phase:        r.Phase,
		Players:      len(r.Participants),
		Humans:       len(r.Humans()),
		ContentPack:  r.ContentPack,
		CreatedAt:    r.CreatedAt,
		LastActivity: r.LastActivity,
	}
}
