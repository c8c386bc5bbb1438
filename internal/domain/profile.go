package domain

import "time"

// UsersCollection holds one profile document per user, keyed by user ID.
const UsersCollection = "users"

// ProfileImagesPrefix is the blob folder holding one photo per user.
const ProfileImagesPrefix = "profile_images/"

// ProfileImagePath is where a user's profile photo is stored.
func ProfileImagePath(userID string) string {
	return ProfileImagesPrefix + userID + ".jpg"
}

// Profile is the public, user-editable part of an account.
type Profile struct {
	ID              string `json:"id"`
	DisplayName     string `json:"displayName"`
	Email           string `json:"email"`
	ProfileImageURL string `json:"profileImageUrl,omitempty"`
}

// DecodeProfile builds a Profile from a users/{id} document.
func DecodeProfile(id string, fields map[string]any) (Profile, error) {
	r := fieldReader{fields: fields}
	p := Profile{
		ID:              id,
		DisplayName:     r.str("displayName", false),
		Email:           r.str("email", false),
		ProfileImageURL: r.str("profileImageUrl", false),
	}
	return p, r.err(id)
}

// Account is a server-side login record. PasswordHash never leaves the server.
type Account struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// User is the identity a client session acts as.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}
