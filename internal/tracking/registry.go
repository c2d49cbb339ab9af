package tracking

// Registry owns the authoritative set of participants for one video run.
// It is mutated only by the pipeline's frame loop and read-only once the
// result assembler takes over, so it needs no locking.
type Registry struct {
	participants []*Participant
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Find resolves a tracker identity back to the participant that owns it.
// Linear scan: the number of concurrently visible faces is small.
func (r *Registry) Find(trackerID string) *Participant {
	if trackerID == "" {
		return nil
	}
	for _, p := range r.participants {
		if t := p.Tracker(); t != nil && t.ID() == trackerID {
			return p
		}
	}
	return nil
}

// Upsert returns the participant owning trackerID, or registers a new
// participant with a fresh identity when none matches. The second return
// reports whether a participant was created.
func (r *Registry) Upsert(trackerID string) (*Participant, bool) {
	if p := r.Find(trackerID); p != nil {
		return p, false
	}
	p := newParticipant()
	r.participants = append(r.participants, p)
	return p, true
}

// Participants returns the registered participants in creation order.
func (r *Registry) Participants() []*Participant {
	return r.participants
}

// Len reports the number of registered participants.
func (r *Registry) Len() int {
	return len(r.participants)
}
