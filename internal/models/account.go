package models

type Account struct {
	Name       string  `json:"name"`
	Role       string  `json:"role"`
	Created    string  `json:"created"`
	LastActive *string `json:"last_active,omitempty"`
}

func (a *Account) IsAdmin() bool {
	return a != nil && a.Role == "admin"
}
