package event

// Publisher delivers lifecycle notifications to subscribers. Delivery is
// best-effort; the game core never waits for acknowledgement.
type Publisher interface {
	TriggerEvent(m Message) error
}
