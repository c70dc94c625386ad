package models

import "time"

// EventItem is a bilingual event listing.
type EventItem struct {
	ID   int  `json:"id"`
	WPID *int `json:"wpId,omitempty"`

	Title          string `json:"title" validate:"required"`
	TitleEn        string `json:"titleEn"`
	Description    string `json:"description"`
	DescriptionEn  string `json:"descriptionEn"`
	Date           string `json:"date"`
	Time           string `json:"time"`
	Location       string `json:"location"`
	LocationEn     string `json:"locationEn"`
	Participants   string `json:"participants"`
	ParticipantsEn string `json:"participantsEn"`
	Category       string `json:"category"`
	CategoryEn     string `json:"categoryEn"`

	Status        EventStatus `json:"status"`
	Gradient      string      `json:"gradient"`
	Image         string      `json:"image"`
	Views         int         `json:"views"`
	Registrations int         `json:"registrations"`
	UpdatedAt     time.Time   `json:"updatedAt,omitempty"`
}

func (e *EventItem) GetID() int          { return e.ID }
func (e *EventItem) SetID(id int)        { e.ID = id }
func (e *EventItem) RemoteID() *int      { return e.WPID }
func (e *EventItem) SetRemoteID(id *int) { e.WPID = id }
func (e *EventItem) Touch(t time.Time)   { e.UpdatedAt = t }

// PublicationStatus derives the publish state of an event. Cancelled events
// are kept as drafts on the remote side.
func (e *EventItem) PublicationStatus() PublishStatus {
	if e.Status == EventCancelled {
		return StatusDraft
	}
	return StatusPublished
}
