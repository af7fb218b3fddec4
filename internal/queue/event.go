// Package queue defines message payloads exchanged over the message broker.
package queue

// SelectionCompletedQueue is the durable queue completed selections are
// published to.
const SelectionCompletedQueue = "selection.completed"

// SelectionCompletedEvent is published when a click fills the requested
// number of seats.  Downstream consumers (checkout, analytics) get the
// chosen seats without having to query the session.
type SelectionCompletedEvent struct {
    SessionID   string   `json:"session_id"`
    VenueID     uint64   `json:"venue_id"`
    VenueName   string   `json:"venue_name"`
    Quantity    int      `json:"quantity"`
    SeatLabels  []string `json:"seats"`
    SeatClasses []string `json:"classes"`
    CompletedAt string   `json:"completed_at"`
}
