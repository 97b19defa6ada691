package instagram

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	// BaseURL is the web front of Instagram
	BaseURL = "https://www.instagram.com"
	// APIURL is the private mobile API root
	APIURL = "https://i.instagram.com/api/v1"

	LoginEndpoint   = "/api/v1/web/accounts/login/ajax/"
	ProfileEndpoint = "/api/v1/users/web_profile_info/"

	// Paths below are relative to APIURL and take an id
	UserInfoEndpoint   = "/users/%s/info/"
	FollowersEndpoint  = "/friendships/%s/followers/"
	FollowingEndpoint  = "/friendships/%s/following/"
	UserFeedEndpoint   = "/feed/user/%s/"
	UserTagsEndpoint   = "/usertags/%s/feed/"
	CommentsEndpoint   = "/media/%s/comments/"
	ReelMediaEndpoint  = "/feed/user/%s/reel_media/"
	FriendshipEndpoint = "/friendships/show/%s/"
	FollowEndpoint     = "/friendships/create/%s/"
)

// GetProfileURL builds the profile lookup URL for username under webURL
func GetProfileURL(webURL, username string) string {
	params := url.Values{}
	params.Set("username", username)
	return fmt.Sprintf("%s%s?%s", webURL, ProfileEndpoint, params.Encode())
}

// IsValidUsername checks a username against Instagram's rules
func IsValidUsername(username string) bool {
	if username == "" || len(username) > 30 {
		return false
	}

	for _, char := range username {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '.' || char == '_') {
			return false
		}
	}
	return true
}

// SanitizeUsername strips a leading @, a profile URL prefix and trailing
// slashes or spaces.
func SanitizeUsername(username string) string {
	username = strings.TrimSpace(username)
	for _, prefix := range []string{"https://www.instagram.com/", "http://www.instagram.com/", "instagram.com/"} {
		username = strings.TrimPrefix(username, prefix)
	}
	username = strings.TrimPrefix(username, "@")
	return strings.TrimRight(username, "/ ")
}
