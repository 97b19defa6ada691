package metadata

import (
	"strconv"

	"osintgram/pkg/record"
)

// Profile is the public summary of an account
type Profile struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	FullName       string `json:"full_name"`
	Biography      string `json:"biography"`
	Followers      int64  `json:"followers"`
	Following      int64  `json:"following"`
	Posts          int64  `json:"posts"`
	IsPrivate      bool   `json:"is_private"`
	IsVerified     bool   `json:"is_verified"`
	IsBusiness     bool   `json:"is_business_account"`
	Category       string `json:"business_category,omitempty"`
	ExternalURL    string `json:"external_url,omitempty"`
	Email          string `json:"email,omitempty"`
	Phone          string `json:"phone,omitempty"`
	ProfilePicture string `json:"profile_picture,omitempty"`
}

// ProfileFrom merges a web profile record with an optional private-API user
// info record. Counters are read from whichever shape carries them.
func ProfileFrom(profile, info record.Record) Profile {
	p := Profile{
		ID:          profile.StringOr("id", info.StringOr("pk", "")),
		Username:    profile.StringOr("username", info.StringOr("username", "")),
		FullName:    profile.StringOr("full_name", info.StringOr("full_name", "")),
		Biography:   profile.StringOr("biography", info.StringOr("biography", "")),
		Category:    profile.StringOr("business_category_name", info.StringOr("category", "")),
		ExternalURL: profile.StringOr("external_url", info.StringOr("external_url", "")),
		Email:       info.StringOr("public_email", profile.StringOr("business_email", "")),
		Phone:       info.StringOr("contact_phone_number", profile.StringOr("business_phone_number", "")),
	}
	p.Followers = firstInt(profile, info, "edge_followed_by.count", "follower_count")
	p.Following = firstInt(profile, info, "edge_follow.count", "following_count")
	p.Posts = firstInt(profile, info, "edge_owner_to_timeline_media.count", "media_count")
	p.IsPrivate, _ = profile.Bool("is_private")
	p.IsVerified, _ = profile.Bool("is_verified")
	p.IsBusiness, _ = profile.Bool("is_business_account")
	if u, ok := ProfilePictureURL(info); ok {
		p.ProfilePicture = u
	} else {
		p.ProfilePicture, _ = ProfilePictureURL(profile)
	}
	return p
}

func firstInt(a, b record.Record, pathA, pathB string) int64 {
	if n, ok := a.Int(pathA); ok {
		return n
	}
	n, _ := b.Int(pathB)
	return n
}

// Fields lists the profile as label/value rows in display order. Empty
// optional values are left out.
func (p Profile) Fields() [][2]string {
	rows := [][2]string{
		{"ID", p.ID},
		{"Username", p.Username},
		{"Full Name", p.FullName},
		{"Biography", p.Biography},
		{"Followers", strconv.FormatInt(p.Followers, 10)},
		{"Following", strconv.FormatInt(p.Following, 10)},
		{"Posts", strconv.FormatInt(p.Posts, 10)},
		{"Private", strconv.FormatBool(p.IsPrivate)},
		{"Verified", strconv.FormatBool(p.IsVerified)},
		{"Business Account", strconv.FormatBool(p.IsBusiness)},
	}
	optional := [][2]string{
		{"Business Category", p.Category},
		{"External URL", p.ExternalURL},
		{"Email", p.Email},
		{"Phone", p.Phone},
		{"HD Profile Picture", p.ProfilePicture},
	}
	for _, row := range optional {
		if row[1] != "" {
			rows = append(rows, row)
		}
	}
	return rows
}
