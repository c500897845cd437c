package entity

import "strings"

type Beneficiary struct {
	ID        uint64
	UserID    uint64
	LastName  string
	FirstName string
	Phone     string
}

func (b *Beneficiary) FullName() string {
	return strings.TrimSpace(b.FirstName + " " + b.LastName)
}
