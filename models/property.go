// nyumbani-crm/models/property.go
package models

import "gorm.io/gorm"

// Property представляет объект недвижимости, принадлежащий арендодателю.
type Property struct {
	gorm.Model
	Name          string `json:"name" gorm:"not null"`
	Address       string `json:"address" gorm:"not null"`
	PropertyType  string `json:"propertyType"`
	NumberOfUnits int    `json:"numberOfUnits" gorm:"default:1"`
	County        string `json:"county"`

	LandlordID uint `json:"landlordId" gorm:"index;not null"`
	Landlord   User `json:"-" gorm:"foreignKey:LandlordID"`

	DepositAmount float64 `json:"depositAmount" gorm:"type:numeric(12,2)"`
	DepositPolicy string  `json:"depositPolicy"`

	// LateFeeFormula - формула расчета пени за просрочку, например
	// "rent * 0.05 + days_late * 100". Доступные переменные: rent, days_late.
	// Пустая строка - пеня не начисляется.
	LateFeeFormula string `json:"lateFeeFormula"`

	Amenities   JSONB `json:"amenities" gorm:"type:jsonb"`
	UnitNumbers JSONB `json:"unitNumbers" gorm:"type:jsonb"`
}
