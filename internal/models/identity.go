package models

import "strings"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Identity приходит от внешнего сервиса аутентификации; nil означает анонимного зрителя.
type Identity struct {
	Email  string `json:"email"`
	Role   Role   `json:"role"`
	Active bool   `json:"active"`
}

// SystemIdentity используется для обновлений из фида сканов перевозчика.
var SystemIdentity = &Identity{Email: "system", Role: RoleAdmin, Active: true}

func (i *Identity) LoggedIn() bool {
	return i != nil && i.Active && NormalizeEmail(i.Email) != ""
}

func (i *Identity) IsAdmin() bool {
	return i.LoggedIn() && i.Role == RoleAdmin
}

// Owns сравнивает почту зрителя с записанным владельцем; пустой владелец не принадлежит никому.
func (i *Identity) Owns(ownerEmail string) bool {
	owner := NormalizeEmail(ownerEmail)
	return i.LoggedIn() && owner != "" && NormalizeEmail(i.Email) == owner
}

func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
