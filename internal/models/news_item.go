package models

import "time"

// NewsItem is a bilingual news article held in the local collection.
// WPID references the WordPress post mirroring this item, if any.
type NewsItem struct {
	ID   int  `json:"id"`
	WPID *int `json:"wpId,omitempty"`

	Title           string `json:"title" validate:"required"`
	TitleEn         string `json:"titleEn"`
	Description     string `json:"description"`
	DescriptionEn   string `json:"descriptionEn"`
	DetailContent   string `json:"detailContent"`
	DetailContentEn string `json:"detailContentEn"`
	Category        string `json:"category"`
	CategoryEn      string `json:"categoryEn"`
	Location        string `json:"location"`
	LocationEn      string `json:"locationEn"`
	Participants    string `json:"participants"`
	ParticipantsEn  string `json:"participantsEn"`
	Author          string `json:"author"`
	AuthorEn        string `json:"authorEn"`

	Date        string   `json:"date"`
	Image       string   `json:"image"`
	Gallery     []string `json:"gallery,omitempty"`
	Gradient    string   `json:"gradient"`
	Tags        []string `json:"tags,omitempty"`
	Views       int      `json:"views"`
	ReadingTime int      `json:"readingTime"`
	Featured    bool     `json:"featured"`

	Status    PublishStatus `json:"status"`
	UpdatedAt time.Time     `json:"updatedAt,omitempty"`
}

func (n *NewsItem) GetID() int          { return n.ID }
func (n *NewsItem) SetID(id int)        { n.ID = id }
func (n *NewsItem) RemoteID() *int      { return n.WPID }
func (n *NewsItem) SetRemoteID(id *int) { n.WPID = id }
func (n *NewsItem) Touch(t time.Time)   { n.UpdatedAt = t }

// Synced reports whether the item has a WordPress counterpart.
func (n *NewsItem) Synced() bool {
	return n.WPID != nil
}
