package models

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// User is an account that can save songs. Email is the identity.
type User struct {
	entity
	email string
	name  string
}

// NewUser creates a new [User] with the given sequence, email and display name.
func NewUser(sequence int, email, name string) *User {
	return &User{entity: newEntity(sequence), email: strings.ToLower(strings.TrimSpace(email)), name: name}
}

func (u *User) Email() string { return u.email }
func (u *User) Name() string  { return u.name }

func (u *User) SetName(name string) {
	u.name = name
	u.updatedAt = time.Now()
}

// Validate checks that the user has an ID and a parseable email address.
func (u *User) Validate() error {
	if u.id == "" {
		return fmt.Errorf("user id is required")
	}
	if _, err := mail.ParseAddress(u.email); err != nil {
		return fmt.Errorf("invalid email %q: %w", u.email, err)
	}
	return nil
}

// SavedSong links a [User] to a catalog song they marked as a favorite.
type SavedSong struct {
	entity
	userID  string
	songKey string
	title   string
}

// NewSavedSong creates a new [SavedSong] for userID and the song's content key.
func NewSavedSong(sequence int, userID, songKey, title string) *SavedSong {
	return &SavedSong{entity: newEntity(sequence), userID: userID, songKey: songKey, title: title}
}

func (s *SavedSong) UserID() string  { return s.userID }
func (s *SavedSong) SongKey() string { return s.songKey }
func (s *SavedSong) Title() string   { return s.title }

func (s *SavedSong) Validate() error {
	switch {
	case s.id == "":
		return fmt.Errorf("saved song id is required")
	case s.userID == "":
		return fmt.Errorf("saved song user id is required")
	case s.songKey == "":
		return fmt.Errorf("saved song key is required")
	}
	return nil
}

// DayLayout is the format of [DailySong.Day].
const DayLayout = "2006-01-02"

// DailySong is one entry of a day's ordered set list.
type DailySong struct {
	entity
	day      string
	position int
	songKey  string
	title    string
}

// NewDailySong creates a new [DailySong] at position within day (YYYY-MM-DD).
func NewDailySong(sequence int, day string, position int, songKey, title string) *DailySong {
	return &DailySong{entity: newEntity(sequence), day: day, position: position, songKey: songKey, title: title}
}

func (d *DailySong) Day() string     { return d.day }
func (d *DailySong) Position() int   { return d.position }
func (d *DailySong) SongKey() string { return d.songKey }
func (d *DailySong) Title() string   { return d.title }

func (d *DailySong) Validate() error {
	if d.id == "" {
		return fmt.Errorf("daily song id is required")
	}
	if _, err := time.Parse(DayLayout, d.day); err != nil {
		return fmt.Errorf("invalid day %q: %w", d.day, err)
	}
	if d.songKey == "" {
		return fmt.Errorf("daily song key is required")
	}
	if d.position < 0 {
		return fmt.Errorf("daily song position must not be negative")
	}
	return nil
}

// SongDocument is a cached copy of a song's chord-sheet HTML.
type SongDocument struct {
	entity
	songKey   string
	html      string
	fetchedAt time.Time
}

// NewSongDocument creates a new [SongDocument] fetched now.
func NewSongDocument(sequence int, songKey, html string) *SongDocument {
	e := newEntity(sequence)
	return &SongDocument{entity: e, songKey: songKey, html: html, fetchedAt: e.createdAt}
}

func (d *SongDocument) SongKey() string      { return d.songKey }
func (d *SongDocument) HTML() string         { return d.html }
func (d *SongDocument) FetchedAt() time.Time { return d.fetchedAt }

func (d *SongDocument) SetHTML(html string) {
	now := time.Now()
	d.html = html
	d.fetchedAt = now
	d.updatedAt = now
}

func (d *SongDocument) SetFetchedAt(t time.Time) { d.fetchedAt = t }

func (d *SongDocument) Validate() error {
	if d.id == "" {
		return fmt.Errorf("document id is required")
	}
	if d.songKey == "" {
		return fmt.Errorf("document song key is required")
	}
	return nil
}
