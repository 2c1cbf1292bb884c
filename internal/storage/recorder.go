package storage

import (
	"log"

	"github.com/google/uuid"

	"github.com/azzazafer/akropol-ai/internal/event"
)

// Recorder persists call lifecycle and turn events from the bus. Persistence
// failures are logged and never fed back into the call path.
type Recorder struct {
	bus   *event.Bus
	subID int
}

// NewRecorder subscribes to all call events.
func NewRecorder(bus *event.Bus) *Recorder {
	r := &Recorder{bus: bus}
	r.subID = bus.Subscribe([]string{"call.*"}, r.handle)
	return r
}

func (r *Recorder) handle(evt *event.Event) {
	switch evt.Type {
	case event.TypeCallStarted:
		err := CreateCall(&Call{
			StreamSID:   evt.StreamSID,
			CalleeName:  evt.CalleeName,
			CalleePhone: evt.CalleePhone,
			StartedAt:   evt.Timestamp,
		})
		if err != nil {
			log.Printf("[Recorder] Failed to save call %s: %v", evt.StreamSID, err)
		}
	case event.TypeCallTurn:
		err := AddTurn(&CallTurn{
			ID:        uuid.New().String(),
			StreamSID: evt.StreamSID,
			Role:      evt.Role,
			Content:   evt.Content,
			CreatedAt: evt.Timestamp,
		})
		if err != nil {
			log.Printf("[Recorder] Failed to save turn for %s: %v", evt.StreamSID, err)
		}
	case event.TypeCallEnded:
		if err := EndCall(evt.StreamSID, evt.Timestamp); err != nil {
			log.Printf("[Recorder] Failed to close call %s: %v", evt.StreamSID, err)
		}
	}
}

// Stop detaches the recorder from the bus.
func (r *Recorder) Stop() {
	r.bus.Unsubscribe(r.subID)
}
