package transport

import (
	"strings"
	"sync"
)

// Delivery is one recorded outbound message.
type Delivery struct {
	UserID  int64
	Text    string
	Buttons [][]Button
}

// Recorder keeps every delivery in memory. Users listed in Fail get an error.
type Recorder struct {
	mu         sync.Mutex
	deliveries []Delivery
	Fail       map[int64]error
}

func NewRecorder() *Recorder {
	return &Recorder{Fail: map[int64]error{}}
}

func (r *Recorder) Deliver(userID int64, text string) error {
	return r.DeliverButtons(userID, text, nil)
}

func (r *Recorder) DeliverButtons(userID int64, text string, buttons [][]Button) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.Fail[userID]; err != nil {
		return err
	}
	r.deliveries = append(r.deliveries, Delivery{UserID: userID, Text: text, Buttons: buttons})
	return nil
}

func (r *Recorder) All() []Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Delivery, len(r.deliveries))
	copy(out, r.deliveries)
	return out
}

// To returns deliveries addressed to userID in order.
func (r *Recorder) To(userID int64) []Delivery {
	var out []Delivery
	for _, d := range r.All() {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	return out
}

// Contains reports whether userID received a message containing substr.
func (r *Recorder) Contains(userID int64, substr string) bool {
	for _, d := range r.To(userID) {
		if strings.Contains(d.Text, substr) {
			return true
		}
	}
	return false
}

// Last returns the latest delivery to userID.
func (r *Recorder) Last(userID int64) (Delivery, bool) {
	ds := r.To(userID)
	if len(ds) == 0 {
		return Delivery{}, false
	}
	return ds[len(ds)-1], true
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	r.deliveries = nil
	r.mu.Unlock()
}
