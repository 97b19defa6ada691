// Package metadata provides typed views over the feed, user and profile
// records returned by the private API.
package metadata

import (
	"fmt"
	"strings"
	"time"

	"osintgram/pkg/record"
)

// TimeLayout formats post timestamps in reports
const TimeLayout = "2006-01-02 15:04:05"

// MediaType is the kind of a feed item
type MediaType int

const (
	Photo    MediaType = 1
	Video    MediaType = 2
	Carousel MediaType = 8
)

func (m MediaType) String() string {
	switch m {
	case Photo:
		return "photo"
	case Video:
		return "video"
	case Carousel:
		return "carousel"
	default:
		return fmt.Sprintf("media(%d)", int(m))
	}
}

// User is the minimal identity of an account appearing in a record
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
}

// UserFrom reads an account from rec. Private-API records carry "pk", web
// records carry "id".
func UserFrom(rec record.Record) (User, bool) {
	id, ok := rec.String("pk")
	if !ok {
		id, ok = rec.String("id")
	}
	if !ok {
		return User{}, false
	}
	return User{
		ID:       id,
		Username: rec.StringOr("username", ""),
		FullName: rec.StringOr("full_name", ""),
	}, true
}

// Record returns the user as a flat record for reporting
func (u User) Record() record.Record {
	return record.Record{"id": u.ID, "username": u.Username, "full_name": u.FullName}
}

// Post is one feed item
type Post struct {
	ID          string
	Code        string
	TakenAt     time.Time
	MediaType   MediaType
	Caption     string
	Likes       int64
	Comments    int64
	Description string
	Owner       User

	HasLocation bool
	Lat, Lng    float64
}

// PostFrom reads the fields of a feed item that are present
func PostFrom(rec record.Record) Post {
	p := Post{
		ID:          rec.StringOr("id", rec.StringOr("pk", "")),
		Code:        rec.StringOr("code", ""),
		Caption:     rec.StringOr("caption.text", ""),
		Description: rec.StringOr("accessibility_caption", ""),
	}
	if ts, ok := rec.Int("taken_at"); ok {
		p.TakenAt = time.Unix(ts, 0).UTC()
	}
	if mt, ok := rec.Int("media_type"); ok {
		p.MediaType = MediaType(mt)
	}
	p.Likes, _ = rec.Int("like_count")
	p.Comments, _ = rec.Int("comment_count")
	if owner, ok := rec.Map("user"); ok {
		p.Owner, _ = UserFrom(owner)
	}

	lat, latOK := rec.Float("location.lat")
	lng, lngOK := rec.Float("location.lng")
	if latOK && lngOK {
		p.HasLocation, p.Lat, p.Lng = true, lat, lng
	}
	return p
}

// URL returns the public link of the post
func (p Post) URL() string {
	if p.Code == "" {
		return ""
	}
	return "https://www.instagram.com/p/" + p.Code + "/"
}

// Taken formats the post timestamp for reports
func (p Post) Taken() string {
	if p.TakenAt.IsZero() {
		return ""
	}
	return p.TakenAt.Format(TimeLayout)
}

// Tagged returns the accounts tagged in a feed item
func Tagged(rec record.Record) []User {
	tags, _ := rec.Slice("usertags.in")
	users := make([]User, 0, len(tags))
	for _, tag := range tags {
		u, ok := tag.Map("user")
		if !ok {
			continue
		}
		if user, ok := UserFrom(u); ok {
			users = append(users, user)
		}
	}
	return users
}

// Hashtags returns the words of a caption that start with '#', in order
func Hashtags(caption string) []string {
	var tags []string
	for _, word := range strings.Fields(caption) {
		if len(word) > 1 && strings.HasPrefix(word, "#") {
			tags = append(tags, word)
		}
	}
	return tags
}

// BestImageURL returns the first (largest) image candidate of a media record
func BestImageURL(rec record.Record) (string, bool) {
	candidates, ok := rec.Slice("image_versions2.candidates")
	if !ok || len(candidates) == 0 {
		return "", false
	}
	return candidates[0].String("url")
}

// PhotoURLs returns the image URLs of a feed item: the image of a photo, or
// the images inside a carousel. Videos contribute nothing.
func PhotoURLs(rec record.Record) []string {
	mt, _ := rec.Int("media_type")
	switch MediaType(mt) {
	case Photo:
		if u, ok := BestImageURL(rec); ok {
			return []string{u}
		}
	case Carousel:
		children, _ := rec.Slice("carousel_media")
		var urls []string
		for _, child := range children {
			if cmt, _ := child.Int("media_type"); MediaType(cmt) != Photo {
				continue
			}
			if u, ok := BestImageURL(child); ok {
				urls = append(urls, u)
			}
		}
		return urls
	}
	return nil
}

// StoryMedia returns the download URL and file extension of a story item
func StoryMedia(rec record.Record) (string, string, bool) {
	if versions, ok := rec.Slice("video_versions"); ok && len(versions) > 0 {
		if u, ok := versions[0].String("url"); ok {
			return u, "mp4", true
		}
	}
	if u, ok := BestImageURL(rec); ok {
		return u, "jpg", true
	}
	return "", "", false
}

// ProfilePictureURL prefers the HD picture of a profile record
func ProfilePictureURL(rec record.Record) (string, bool) {
	for _, path := range []string{"hd_profile_pic_url_info.url", "profile_pic_url_hd", "profile_pic_url"} {
		if u, ok := rec.String(path); ok && u != "" {
			return u, true
		}
	}
	return "", false
}

// MediaCounts tallies feed items by type
type MediaCounts struct {
	Photos    int `json:"photos"`
	Videos    int `json:"videos"`
	Carousels int `json:"carousels"`
}

// Add counts one item
func (c *MediaCounts) Add(t MediaType) {
	switch t {
	case Photo:
		c.Photos++
	case Video:
		c.Videos++
	case Carousel:
		c.Carousels++
	}
}

// Total is the number of counted items
func (c MediaCounts) Total() int {
	return c.Photos + c.Videos + c.Carousels
}
