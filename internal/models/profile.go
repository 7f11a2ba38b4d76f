package models

import "strings"

// UserProfile is the standardized applicant data projected onto each site's
// field vocabulary by a strategy's MapFormFields.
type UserProfile struct {
	// Basic information
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`

	// Documents
	ResumePath      string `json:"resume_path,omitempty"`
	CoverLetterPath string `json:"cover_letter_path,omitempty"`
	CoverLetter     string `json:"cover_letter,omitempty"`

	// Professional information
	CurrentTitle    string   `json:"current_title,omitempty"`
	CurrentCompany  string   `json:"current_company,omitempty"`
	YearsExperience int      `json:"years_experience,omitempty"`
	Skills          []string `json:"skills,omitempty"`
	LinkedInURL     string   `json:"linkedin_url,omitempty"`
	GitHubURL       string   `json:"github_url,omitempty"`
	PortfolioURL    string   `json:"portfolio_url,omitempty"`

	// Location and preferences
	Address           string `json:"address,omitempty"`
	City              string `json:"city,omitempty"`
	State             string `json:"state,omitempty"`
	Zip               string `json:"zip,omitempty"`
	Country           string `json:"country,omitempty"`
	WillingToRelocate bool   `json:"willing_to_relocate,omitempty"`
	RemotePreference  string `json:"remote_preference,omitempty"`
	SalaryExpectation string `json:"salary_expectation,omitempty"`

	// Legal status
	WorkAuthorization  string `json:"work_authorization,omitempty"`
	RequireSponsorship bool   `json:"require_sponsorship,omitempty"`

	// Per-company overrides
	CustomFields map[string]string `json:"custom_fields,omitempty"`
}

// FullName returns the applicant's display name
func (p *UserProfile) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}
