package entity

type User struct {
	ID    uint64
	Name  string
	Email string
}
