// nyumbani-crm/models/user.go
package models

import "gorm.io/gorm"

// Role определяет модель роли в базе данных ('admin', 'landlord', 'tenant').
type Role struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	Name        string `json:"name" gorm:"unique;not null"`
	Description string `json:"description"`
}

// User - учетная запись в системе. Арендодатели владеют объектами,
// арендаторы могут иметь личный кабинет для просмотра своих платежей.
type User struct {
	gorm.Model
	Email       string `json:"email" gorm:"unique;not null"`
	Username    string `json:"username" gorm:"unique;not null"`
	Password    string `json:"-" gorm:"not null"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	PhoneNumber string `json:"phoneNumber"`
	Active      bool   `json:"active" gorm:"default:true"`
	Roles       []Role `json:"roles" gorm:"many2many:user_roles;"`
}

// FullName возвращает полное имя пользователя.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// HasRole проверяет наличие роли у пользователя (роли должны быть
// предзагружены через Preload("Roles")).
func (u *User) HasRole(name string) bool {
	for _, r := range u.Roles {
		if r.Name == name {
			return true
		}
	}
	return false
}
