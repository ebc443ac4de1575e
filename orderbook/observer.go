package orderbook

// Observer receives a notification after every accepted update. The book is
// fully applied by the time the callback runs; observers read it through the
// normal query methods.
type Observer interface {
	OnBookUpdate(b *Book)
}

// Register adds an observer. Registering the same observer twice has no
// additional effect.
func (b *Book) Register(o Observer) {
	b.obsMu.Lock()
	defer b.obsMu.Unlock()
	for _, existing := range b.observers {
		if existing == o {
			return
		}
	}
	b.observers = append(b.observers, o)
}

// Unregister removes an observer; removing one that was never registered is
// a no-op.
func (b *Book) Unregister(o Observer) {
	b.obsMu.Lock()
	defer b.obsMu.Unlock()
	for i, existing := range b.observers {
		if existing == o {
			b.observers = append(b.observers[:i], b.observers[i+1:]...)
			return
		}
	}
}

func (b *Book) notifyObservers() {
	b.obsMu.Lock()
	obs := make([]Observer, len(b.observers))
	copy(obs, b.observers)
	b.obsMu.Unlock()
	for _, o := range obs {
		o.OnBookUpdate(b)
	}
}
