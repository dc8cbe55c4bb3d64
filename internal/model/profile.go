package model

import (
	"fmt"
	"math/rand"
	"time"
)

// Profile is the public-facing user record stored in the remote profiles
// row. Authentication itself is handled by the surrounding app; this module
// only bootstraps the row when it is missing.
type Profile struct {
	UID       string    `json:"uid" db:"uid"`
	Username  string    `json:"username" db:"username"`
	Email     string    `json:"email" db:"email"`
	Avatar    string    `json:"avatar" db:"avatar"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

var usernameAdjectives = []string{
	"Quick", "Lazy", "Happy", "Sad", "Brave", "Clever", "Silly", "Wise",
	"Bold", "Gentle", "Curious", "Friendly", "Mysterious", "Adventurous",
	"Playful", "Charming",
}

var usernameNouns = []string{
	"Fox", "Dog", "Cat", "Mouse", "Bird", "Fish", "Lion", "Tiger", "Bear",
	"Wolf", "Traveler", "Explorer", "Adventurer", "Dreamer", "Thinker",
	"Creator", "Innovator", "Leader", "Follower", "Seeker", "Finder",
}

// GenerateUsername produces a placeholder username like "CuriousFox42" for
// profiles created without one.
func GenerateUsername() string {
	adj := usernameAdjectives[rand.Intn(len(usernameAdjectives))]
	noun := usernameNouns[rand.Intn(len(usernameNouns))]
	return fmt.Sprintf("%s%s%d", adj, noun, rand.Intn(1000))
}
