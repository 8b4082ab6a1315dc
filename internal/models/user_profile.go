package models

// UnknownUserName stands in for an author whose profile could not be resolved.
const UnknownUserName = "Unknown user"

// UserName holds the name parts of a profile.
type UserName struct {
	GivenName  string `json:"givenName"`
	FamilyName string `json:"familyName"`
	FullName   string `json:"fullName"`
}

// UserProfile is a platform user.
type UserProfile struct {
	ID           string   `json:"id"`
	Name         UserName `json:"name"`
	EmailAddress string   `json:"emailAddress,omitempty"`
}

// DisplayName prefers the full name, then the given name, then the placeholder.
func (p *UserProfile) DisplayName() string {
	if p == nil {
		return UnknownUserName
	}
	switch {
	case p.Name.FullName != "":
		return p.Name.FullName
	case p.Name.GivenName != "":
		return p.Name.GivenName
	default:
		return UnknownUserName
	}
}
