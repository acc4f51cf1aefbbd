package dispatch

// Registry holds one dispatcher per row so every row has its own in-flight
// guard.
type Registry struct {
	prefix   string
	notifier Notifier
	opts     []Option
	byID     map[string]*Dispatcher
}

func NewRegistry(prefix string, notifier Notifier, opts ...Option) *Registry {
	return &Registry{
		prefix:   prefix,
		notifier: notifier,
		opts:     opts,
		byID:     make(map[string]*Dispatcher),
	}
}

// For returns the dispatcher for rowID, creating it on first use.
func (r *Registry) For(rowID string) *Dispatcher {
	if d, ok := r.byID[rowID]; ok {
		return d
	}
	d := New(r.prefix+":"+rowID, r.notifier, r.opts...)
	r.byID[rowID] = d
	return d
}

func (r *Registry) Get(rowID string) (*Dispatcher, bool) {
	d, ok := r.byID[rowID]
	return d, ok
}

func (r *Registry) Busy(rowID string) bool {
	d, ok := r.byID[rowID]
	return ok && d.Busy()
}

// Prune drops idle dispatchers for rows that no longer exist. One waiting on
// a confirmation or a response is kept so its result still produces a
// notification.
func (r *Registry) Prune(rowIDs []string) {
	keep := make(map[string]bool, len(rowIDs))
	for _, id := range rowIDs {
		keep[id] = true
	}
	for id, d := range r.byID {
		if !keep[id] && d.State() == Idle {
			delete(r.byID, id)
		}
	}
}

// Resolve routes a result to the dispatcher that sent it.
func (r *Registry) Resolve(msg ResultMsg) Outcome {
	for _, d := range r.byID {
		if d.ID() == msg.DispatcherID {
			return d.Resolve(msg)
		}
	}
	return Outcome{}
}

func (r *Registry) Len() int { return len(r.byID) }
