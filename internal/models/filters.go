package models

// SearchFilters narrows the matchmaking candidate pool. A zero-value filter
// set matches everyone: the age range applies only when enabled, an empty
// gender preference list accepts any gender, and SameAgeGroupOnly restricts
// candidates to within five years of the requester's age.
type SearchFilters struct {
	AgeRangeEnabled   bool     `json:"ageRangeEnabled"`
	MinAge            int      `json:"minAge"`
	MaxAge            int      `json:"maxAge"`
	GenderPreferences []string `json:"genderPreferences"`
	SameAgeGroupOnly  bool     `json:"sameAgeGroupOnly"`
}

// SameAgeGroupSpread is the maximum age distance, in years, accepted when
// SameAgeGroupOnly is set.
const SameAgeGroupSpread = 5
