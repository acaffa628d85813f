package foliosdk

import "time"

// ============================================================================
// Portfolio Types
// ============================================================================

// Portfolio is a portfolio record as the API returns it.
type Portfolio struct {
	ID          string `json:"id"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Slug        string `json:"slug,omitempty"`
	TemplateID  string `json:"templateId,omitempty"`
	IsPublished bool   `json:"isPublished"`
}

// PortfolioInput is the body for creating or updating a portfolio.
type PortfolioInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Slug        string `json:"slug"`
	TemplateID  string `json:"templateId,omitempty"`
}

// ============================================================================
// Child Types
// ============================================================================

// Project is a persisted project entry.
type Project struct {
	ID           string    `json:"id"`
	PortfolioID  string    `json:"portfolioId"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	ImageURL     string    `json:"imageUrl,omitempty"`
	ProjectURL   string    `json:"projectUrl,omitempty"`
	GithubURL    string    `json:"githubUrl,omitempty"`
	Technologies []string  `json:"technologies,omitempty"`
	Featured     bool      `json:"featured"`
	Order        int       `json:"order"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ProjectInput is the body for creating a project.
type ProjectInput struct {
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	ImageURL     string   `json:"imageUrl,omitempty"`
	ProjectURL   string   `json:"projectUrl,omitempty"`
	GithubURL    string   `json:"githubUrl,omitempty"`
	Technologies []string `json:"technologies"`
	Featured     bool     `json:"featured"`
	Order        int      `json:"order"`
}

// Skill is a persisted skill entry.
type Skill struct {
	ID          string    `json:"id"`
	PortfolioID string    `json:"portfolioId"`
	Name        string    `json:"name"`
	Category    string    `json:"category,omitempty"`
	Proficiency int       `json:"proficiency"`
	Order       int       `json:"order"`
	CreatedAt   time.Time `json:"createdAt"`
}

// SkillInput is the body for creating a skill.
type SkillInput struct {
	Name        string `json:"name"`
	Category    string `json:"category,omitempty"`
	Proficiency int    `json:"proficiency"`
	Order       int    `json:"order"`
}

// ============================================================================
// Catalogue and Public Types
// ============================================================================

// Template is a selectable theme.
type Template struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	PreviewImage string `json:"previewImage,omitempty"`
	IsPremium    bool   `json:"isPremium"`
}

// PublicUser is the owner block of a public portfolio.
type PublicUser struct {
	FirstName       string `json:"firstName,omitempty"`
	LastName        string `json:"lastName,omitempty"`
	ProfileImageURL string `json:"profileImageUrl,omitempty"`
	Bio             string `json:"bio,omitempty"`
	Email           string `json:"email,omitempty"`
}

// PublicProject is a project as shown to anonymous visitors.
type PublicProject struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	ImageURL     string   `json:"imageUrl,omitempty"`
	ProjectURL   string   `json:"projectUrl,omitempty"`
	GithubURL    string   `json:"githubUrl,omitempty"`
	Technologies []string `json:"technologies,omitempty"`
}

// PublicSkill is a skill as shown to anonymous visitors.
type PublicSkill struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category,omitempty"`
	Proficiency int    `json:"proficiency,omitempty"`
}

// PublicPortfolio is the published, anonymous view of a portfolio.
type PublicPortfolio struct {
	ID          string          `json:"id"`
	Description string          `json:"description,omitempty"`
	User        *PublicUser     `json:"user,omitempty"`
	Projects    []PublicProject `json:"projects,omitempty"`
	Skills      []PublicSkill   `json:"skills,omitempty"`
}

// ============================================================================
// AI Types
// ============================================================================

// GenerateRequest asks the content oracle for a piece of copy.
type GenerateRequest struct {
	Type    string `json:"type"`
	Context any    `json:"context"`
}

// GenerateResponse carries the generated text.
type GenerateResponse struct {
	Content string `json:"content"`
}
