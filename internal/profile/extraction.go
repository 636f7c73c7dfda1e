// Package profile defines the structured profile extracted from a résumé and
// the field table that drives its schema, prompt, normalization and storage.
package profile

type Employment struct {
	Company     string   `json:"company,omitempty"`
	Title       string   `json:"title,omitempty"`
	Location    string   `json:"location,omitempty"`
	StartDate   string   `json:"start_date,omitempty"`
	EndDate     string   `json:"end_date,omitempty"`
	Current     bool     `json:"current,omitempty"`
	Description string   `json:"description,omitempty"`
	Highlights  []string `json:"highlights,omitempty"`
}

type Education struct {
	Institution  string `json:"institution,omitempty"`
	Degree       string `json:"degree,omitempty"`
	FieldOfStudy string `json:"field_of_study,omitempty"`
	StartDate    string `json:"start_date,omitempty"`
	EndDate      string `json:"end_date,omitempty"`
	Grade        string `json:"grade,omitempty"`
}

type Project struct {
	Name         string   `json:"name,omitempty"`
	Description  string   `json:"description,omitempty"`
	URL          string   `json:"url,omitempty"`
	Technologies []string `json:"technologies,omitempty"`
}

// Extraction holds every optional profile attribute. A nil pointer or an
// empty slice means the attribute was not found in the document.
type Extraction struct {
	DisplayName       *string `json:"display_name,omitempty"`
	Headline          *string `json:"headline,omitempty"`
	Summary           *string `json:"summary,omitempty"`
	Email             *string `json:"email,omitempty"`
	Phone             *string `json:"phone,omitempty"`
	City              *string `json:"city,omitempty"`
	Country           *string `json:"country,omitempty"`
	Timezone          *string `json:"timezone,omitempty"`
	CurrentTitle      *string `json:"current_title,omitempty"`
	CurrentCompany    *string `json:"current_company,omitempty"`
	YearsOfExperience *int    `json:"years_of_experience,omitempty"`
	SeniorityLevel    *string `json:"seniority_level,omitempty"`

	EmploymentHistory    []Employment `json:"employment_history,omitempty"`
	Education            []Education  `json:"education,omitempty"`
	Skills               []string     `json:"skills,omitempty"`
	ProgrammingLanguages []string     `json:"programming_languages,omitempty"`
	Frameworks           []string     `json:"frameworks,omitempty"`
	Tools                []string     `json:"tools,omitempty"`
	SpokenLanguages      []string     `json:"spoken_languages,omitempty"`
	Certifications       []string     `json:"certifications,omitempty"`
	NotableProjects      []Project    `json:"notable_projects,omitempty"`
	Publications         []string     `json:"publications,omitempty"`
	Awards               []string     `json:"awards,omitempty"`
	Interests            []string     `json:"interests,omitempty"`

	WebsiteURL   *string `json:"website_url,omitempty"`
	LinkedInURL  *string `json:"linkedin_url,omitempty"`
	GitHubURL    *string `json:"github_url,omitempty"`
	TwitterURL   *string `json:"twitter_url,omitempty"`
	PortfolioURL *string `json:"portfolio_url,omitempty"`

	OpenToWork              *bool    `json:"open_to_work,omitempty"`
	DesiredRoles            []string `json:"desired_roles,omitempty"`
	DesiredSalaryMin        *int     `json:"desired_salary_min,omitempty"`
	DesiredSalaryMax        *int     `json:"desired_salary_max,omitempty"`
	SalaryCurrency          *string  `json:"salary_currency,omitempty"`
	WorkAuthorization       *string  `json:"work_authorization,omitempty"`
	RequiresVisaSponsorship *bool    `json:"requires_visa_sponsorship,omitempty"`
	WillingToRelocate       *bool    `json:"willing_to_relocate,omitempty"`
	PreferredLocations      []string `json:"preferred_locations,omitempty"`
	RemotePreference        *string  `json:"remote_preference,omitempty"`
	NoticePeriod            *string  `json:"notice_period,omitempty"`
}
