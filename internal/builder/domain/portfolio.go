package domain

import "time"

// Portfolio is the persisted parent record as the upstream API returns it.
type Portfolio struct {
	ID          string `json:"id"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Slug        string `json:"slug,omitempty"`
	TemplateID  string `json:"templateId,omitempty"`
	IsPublished bool   `json:"isPublished"`
}

// Template is a selectable portfolio theme.
type Template struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	PreviewImage string `json:"previewImage,omitempty"`
	IsPremium    bool   `json:"isPremium"`
}

// MediaItem is an image the user uploaded to the hosting provider. Only
// the hosted URL and provider id are kept, never the bytes.
type MediaItem struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	URL       string    `json:"url"`
	PublicID  string    `json:"publicId,omitempty"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
