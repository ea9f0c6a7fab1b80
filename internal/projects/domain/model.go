package domain

import (
	"strings"

	"github.com/mkpublisher/showcase/internal/remote"
)

// PlaceholderImage is used when a submission has no image URL.
const PlaceholderImage = "https://images.unsplash.com/photo-1486312338219-ce68d2c6f44d?auto=format&fit=crop&q=80&w=300&h=200"

// Submission is the create-project form. Only presence of title and link is
// checked; the link is not validated as a URL.
type Submission struct {
	Title string `json:"title" form:"title"`
	Link  string `json:"link" form:"link"`
	Image string `json:"image" form:"image"`
}

func (s Submission) Normalize() Submission {
	s.Title = strings.TrimSpace(s.Title)
	s.Link = strings.TrimSpace(s.Link)
	s.Image = strings.TrimSpace(s.Image)
	return s
}

func (s Submission) Validate() error {
	if s.Title == "" {
		return &MissingFieldError{Field: "title"}
	}
	if s.Link == "" {
		return &MissingFieldError{Field: "link"}
	}
	return nil
}

// Record builds the insert payload owned by userID.
func (s Submission) Record(userID string) remote.NewProject {
	image := s.Image
	if image == "" {
		image = PlaceholderImage
	}
	return remote.NewProject{
		Title:  s.Title,
		Link:   s.Link,
		Image:  image,
		Rating: 0,
		UserID: userID,
	}
}
