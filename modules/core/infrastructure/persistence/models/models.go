package models

import "time"

type Tenant struct {
	ID        string
	Name      string
	Domain    string
	IsActive  bool
	CreatedAt time.Time
}

type User struct {
	ID        int64
	TenantID  string
	Email     string
	FirstName string
	LastName  string
	Status    string
	CreatedAt time.Time
}
