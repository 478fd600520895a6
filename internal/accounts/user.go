package accounts

import "time"

type User struct {
	ID        int       `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// ClientLink is a row of the client_trainers table, i.e. one
// client being coached by one trainer.
type ClientLink struct {
	ID        int       `json:"id"`
	ClientID  int       `json:"clientId"`
	TrainerID int       `json:"trainerId"`
	CreatedAt time.Time `json:"createdAt"`
}
